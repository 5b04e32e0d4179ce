package vault_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/beanfolio/roastery/internal/security/vault"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v, err := vault.New(testKey())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, plain := range []string{"", "x", "ya29.a0AfH6SMB-access-token", strings.Repeat("long", 500)} {
		ct, err := v.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plain, err)
		}
		if strings.Contains(ct, plain) && plain != "" {
			t.Fatalf("ciphertext contains plaintext")
		}
		got, err := v.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plain {
			t.Fatalf("round trip: got %q want %q", got, plain)
		}
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	v, _ := vault.New(testKey())
	a, _ := v.Encrypt("same input")
	b, _ := v.Encrypt("same input")
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ (fresh nonce)")
	}
}

func TestNew_RejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := vault.New(bytes.Repeat([]byte{1}, n)); err == nil {
			t.Fatalf("New accepted %d-byte key", n)
		}
	}
}

func TestDecrypt_TamperDetected(t *testing.T) {
	v, _ := vault.New(testKey())
	ct, _ := v.Encrypt("secret")

	parts := strings.SplitN(ct, "|", 2)
	raw, _ := base64.StdEncoding.DecodeString(parts[1])
	raw[len(raw)/2] ^= 0xff
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(raw)

	if _, err := v.Decrypt(tampered); !errors.Is(err, vault.ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
}

func TestDecrypt_MalformedInput(t *testing.T) {
	v, _ := vault.New(testKey())
	for _, ct := range []string{"", "no-separator", "a|b|c", "!!!|AAAA", "AAAA|!!!"} {
		if _, err := v.Decrypt(ct); !errors.Is(err, vault.ErrIntegrity) {
			t.Fatalf("Decrypt(%q): want ErrIntegrity, got %v", ct, err)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	v1, _ := vault.New(testKey())
	v2, _ := vault.New(bytes.Repeat([]byte{0x24}, 32))
	ct, _ := v1.Encrypt("secret")
	if _, err := v2.Decrypt(ct); !errors.Is(err, vault.ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
}

func TestRandomToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := vault.RandomToken(32)
		if err != nil {
			t.Fatalf("RandomToken: %v", err)
		}
		if seen[tok] {
			t.Fatal("duplicate token")
		}
		seen[tok] = true
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token %q is not base64url without padding", tok)
		}
	}
}

func TestPKCEPair_S256(t *testing.T) {
	pair, err := vault.NewPKCEPair()
	if err != nil {
		t.Fatalf("NewPKCEPair: %v", err)
	}
	if len(pair.Verifier) != 43 {
		t.Fatalf("verifier length = %d, want 43", len(pair.Verifier))
	}
	sum := sha256.Sum256([]byte(pair.Verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if pair.Challenge != want {
		t.Fatalf("challenge = %q, want %q", pair.Challenge, want)
	}
}

func TestS256Challenge_KnownVector(t *testing.T) {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := vault.S256Challenge(verifier); got != want {
		t.Fatalf("S256Challenge = %q, want %q", got, want)
	}
}
