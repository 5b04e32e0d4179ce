// Package config loads the roastery auth configuration from YAML with
// environment overrides. Misconfiguration is fatal: Load returns an error and
// main exits instead of limping into a flow that fails mid-redirect.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// vaultKeyLength is the required master key size: 32 bytes => AES-256.
const vaultKeyLength = 32

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// driver: postgres | memory
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		// flow_state: db | cache. Where one-time authorization flow rows live.
		FlowState string `yaml:"flow_state"`
	} `yaml:"storage"`

	Cache struct {
		// kind: memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Security struct {
		// VaultMasterKey is base64(32 bytes); encrypts provider tokens at rest.
		VaultMasterKey string `yaml:"vault_master_key"`
	} `yaml:"security"`

	Session struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
		TTL    string `yaml:"ttl"`
	} `yaml:"session"`

	Frontend struct {
		// SuccessURL receives the minted session token after a login.
		SuccessURL string `yaml:"success_url"`
		// ErrorURL receives machine-readable error codes for failed flows.
		ErrorURL string `yaml:"error_url"`
	} `yaml:"frontend"`

	Flow struct {
		// StateTTL bounds how long an authorization attempt may stay in flight.
		StateTTL string `yaml:"state_ttl"`
		// SweepInterval controls the abandoned-flow garbage collector.
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"flow"`

	Providers map[string]Provider `yaml:"providers"`
}

// Provider holds one identity provider's credentials.
type Provider struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates. A missing file is allowed when env overrides supply everything.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&c.App.Env, "APP_ENV")
	setStr(&c.Server.Addr, "SERVER_ADDR")
	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Storage.Driver, "STORAGE_DRIVER")
	setStr(&c.Storage.DSN, "DATABASE_DSN")
	setStr(&c.Storage.FlowState, "FLOW_STATE_BACKEND")
	setStr(&c.Cache.Kind, "CACHE_KIND")
	setStr(&c.Cache.Redis.Addr, "REDIS_ADDR")
	setStr(&c.Cache.Redis.Password, "REDIS_PASSWORD")
	setStr(&c.Security.VaultMasterKey, "VAULT_MASTER_KEY")
	setStr(&c.Session.Secret, "SESSION_SECRET")
	setStr(&c.Frontend.SuccessURL, "FRONTEND_SUCCESS_URL")
	setStr(&c.Frontend.ErrorURL, "FRONTEND_ERROR_URL")

	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Redis.DB = n
		}
	}

	// GOOGLE_CLIENT_ID style overrides for each configured provider.
	for name, p := range c.Providers {
		up := strings.ToUpper(name)
		setStr(&p.ClientID, up+"_CLIENT_ID")
		setStr(&p.ClientSecret, up+"_CLIENT_SECRET")
		setStr(&p.RedirectURL, up+"_REDIRECT_URL")
		c.Providers[name] = p
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.FlowState == "" {
		c.Storage.FlowState = "db"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = "roastery"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}
	if c.Flow.StateTTL == "" {
		c.Flow.StateTTL = "10m"
	}
	if c.Flow.SweepInterval == "" {
		c.Flow.SweepInterval = "5m"
	}
	if c.Frontend.SuccessURL == "" {
		c.Frontend.SuccessURL = "http://localhost:3000/auth/complete"
	}
	if c.Frontend.ErrorURL == "" {
		c.Frontend.ErrorURL = "http://localhost:3000/auth/error"
	}
}

// Validate fails fast on anything that would break a flow at runtime.
func (c *Config) Validate() error {
	if _, err := c.VaultKey(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("config: session.secret is required (env SESSION_SECRET)")
	}
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("config: session.ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Flow.StateTTL); err != nil {
		return fmt.Errorf("config: flow.state_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Flow.SweepInterval); err != nil {
		return fmt.Errorf("config: flow.sweep_interval: %w", err)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn is required for the postgres driver")
	}
	if fs := c.Storage.FlowState; fs != "db" && fs != "cache" {
		return fmt.Errorf("config: storage.flow_state must be db or cache, got %q", fs)
	}
	for name, p := range c.Providers {
		if strings.TrimSpace(p.ClientID) == "" {
			return fmt.Errorf("config: provider %s: client_id is required", name)
		}
		if strings.TrimSpace(p.ClientSecret) == "" {
			return fmt.Errorf("config: provider %s: client_secret is required", name)
		}
		if strings.TrimSpace(p.RedirectURL) == "" {
			return fmt.Errorf("config: provider %s: redirect_url is required", name)
		}
		if len(p.Scopes) == 0 {
			return fmt.Errorf("config: provider %s: at least one scope is required", name)
		}
	}
	return nil
}

// VaultKey decodes and length-checks the master key.
func (c *Config) VaultKey() ([]byte, error) {
	raw := strings.TrimSpace(c.Security.VaultMasterKey)
	if raw == "" {
		return nil, fmt.Errorf("config: security.vault_master_key not set; generate one with: openssl rand -base64 32")
	}
	k, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("config: decode vault_master_key: %w", err)
	}
	if len(k) != vaultKeyLength {
		return nil, fmt.Errorf("config: vault_master_key must decode to %d bytes, got %d", vaultKeyLength, len(k))
	}
	return k, nil
}

// SessionTTL returns the parsed session lifetime. Validate runs first, so the
// parse cannot fail here.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

func (c *Config) FlowStateTTL() time.Duration {
	d, _ := time.ParseDuration(c.Flow.StateTTL)
	return d
}

func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Flow.SweepInterval)
	return d
}
