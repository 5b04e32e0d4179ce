// Package vault provides authenticated encryption for provider tokens at
// rest, plus the random material used by authorization flows: CSRF state
// strings and PKCE verifier/challenge pairs.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceSizeGCM      = 12 // AES-GCM recommended nonce size (96 bits)
	requiredKeyLength = 32 // 32 bytes => AES-256
	sep               = "|" // base64(nonce)|base64(ciphertext)
)

// ErrIntegrity is returned when a ciphertext fails authentication or is
// malformed. Decrypt never returns garbage plaintext.
var ErrIntegrity = errors.New("vault: ciphertext integrity check failed")

// Vault encrypts and decrypts opaque secrets with a process-wide key.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a raw 32-byte key. Key problems are configuration
// errors; callers should treat a non-nil error as fatal at startup.
func New(key []byte) (*Vault, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", requiredKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher.NewGCM: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plainText and returns base64(nonce)|base64(ciphertext).
// The GCM tag travels inside the ciphertext part.
func (v *Vault) Encrypt(plainText string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}
	ct := v.aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens base64(nonce)|base64(ciphertext). Any malformed encoding,
// wrong nonce length or failed authentication yields ErrIntegrity.
func (v *Vault) Decrypt(cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected base64(nonce)|base64(ciphertext)", ErrIntegrity)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode nonce: %v", ErrIntegrity, err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrIntegrity, err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("%w: nonce is %d bytes, expected %d", ErrIntegrity, len(nonce), nonceSizeGCM)
	}
	pt, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: gcm auth", ErrIntegrity)
	}
	return string(pt), nil
}

// RandomToken returns nBytes of cryptographic randomness as base64url
// without padding. Used for CSRF state and PKCE verifiers.
func RandomToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// PKCEPair is a verifier/challenge pair per RFC 7636 (S256).
// The verifier is disclosed only at code-exchange time; the challenge only at
// authorization time. An intercepted redirect alone cannot redeem the code.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// NewPKCEPair generates a 43-character verifier and its S256 challenge.
func NewPKCEPair() (PKCEPair, error) {
	verifier, err := RandomToken(32)
	if err != nil {
		return PKCEPair{}, err
	}
	return PKCEPair{Verifier: verifier, Challenge: S256Challenge(verifier)}, nil
}

// S256Challenge returns base64url(sha256(verifier)) without padding.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
