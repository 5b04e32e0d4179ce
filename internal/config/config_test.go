package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", testKey())
	t.Setenv("SESSION_SECRET", "a-long-enough-session-secret-value")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Storage.Driver != "memory" || cfg.Storage.FlowState != "db" {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Fatalf("session ttl = %v", cfg.SessionTTL())
	}
	if cfg.FlowStateTTL() != 10*time.Minute || cfg.SweepInterval() != 5*time.Minute {
		t.Fatalf("flow durations: %v / %v", cfg.FlowStateTTL(), cfg.SweepInterval())
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("SESSION_SECRET", "a-long-enough-session-secret-value")
	path := writeConfig(t, `
server:
  addr: ":9999"
storage:
  driver: memory
  flow_state: cache
security:
  vault_master_key: "`+testKey()+`"
session:
  ttl: 1h
providers:
  google:
    client_id: id
    client_secret: secret
    redirect_url: https://app.example/oauth/google/callback
    scopes: [openid, email]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" || cfg.Storage.FlowState != "cache" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.SessionTTL() != time.Hour {
		t.Fatalf("ttl = %v", cfg.SessionTTL())
	}
	if p := cfg.Providers["google"]; p.ClientID != "id" || len(p.Scopes) != 2 {
		t.Fatalf("provider = %+v", p)
	}
}

func TestLoad_MissingFileTolerated(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", testKey())
	t.Setenv("SESSION_SECRET", "a-long-enough-session-secret-value")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing file should fall back to env: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", testKey())
	t.Setenv("SESSION_SECRET", "a-long-enough-session-secret-value")
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("GOOGLE_CLIENT_SECRET", "from-env")

	path := writeConfig(t, `
server:
  addr: ":9999"
providers:
  google:
    client_id: id
    client_secret: from-file
    redirect_url: https://app.example/cb
    scopes: [openid]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env did not win: %q", cfg.Server.Addr)
	}
	if cfg.Providers["google"].ClientSecret != "from-env" {
		t.Fatalf("provider env override lost: %+v", cfg.Providers["google"])
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Security.VaultMasterKey = testKey()
		c.Session.Secret = "secret"
		c.applyDefaults()
		return c
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing vault key", func(c *Config) { c.Security.VaultMasterKey = "" }, "vault_master_key"},
		{"bad vault key encoding", func(c *Config) { c.Security.VaultMasterKey = "%%%" }, "vault_master_key"},
		{"short vault key", func(c *Config) {
			c.Security.VaultMasterKey = base64.StdEncoding.EncodeToString([]byte("short"))
		}, "32 bytes"},
		{"missing session secret", func(c *Config) { c.Session.Secret = "" }, "session.secret"},
		{"bad session ttl", func(c *Config) { c.Session.TTL = "soon" }, "session.ttl"},
		{"bad state ttl", func(c *Config) { c.Flow.StateTTL = "whenever" }, "state_ttl"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.dsn"},
		{"bad flow_state backend", func(c *Config) { c.Storage.FlowState = "tape" }, "flow_state"},
		{"provider missing secret", func(c *Config) {
			c.Providers = map[string]Provider{"google": {
				ClientID:    "id",
				RedirectURL: "https://app.example/cb",
				Scopes:      []string{"openid"},
			}}
		}, "client_secret"},
		{"provider missing scopes", func(c *Config) {
			c.Providers = map[string]Provider{"google": {
				ClientID:     "id",
				ClientSecret: "secret",
				RedirectURL:  "https://app.example/cb",
			}}
		}, "scope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("want validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestVaultKey_RoundTrip(t *testing.T) {
	c := &Config{}
	c.Security.VaultMasterKey = testKey()
	k, err := c.VaultKey()
	if err != nil {
		t.Fatalf("VaultKey: %v", err)
	}
	if len(k) != 32 {
		t.Fatalf("key length = %d", len(k))
	}
}
