// Package config loads vault configuration from an HCL file and overlays
// environment variables. Environment always wins over the file, so secrets
// like the master encryption key can stay out of config files entirely.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Environment variable names recognized by ApplyEnv.
const (
	EnvEncryptionKey      = "CREDVAULT_ENCRYPTION_KEY"
	EnvEncryptionSalt     = "CREDVAULT_ENCRYPTION_SALT"
	EnvPGConnectionURL    = "CREDVAULT_PG_CONNECTION_URL"
	EnvPGMaxOpenConns     = "CREDVAULT_PG_MAX_OPEN_CONNECTIONS"
	EnvPGQueryTimeout     = "CREDVAULT_PG_QUERY_TIMEOUT"
	EnvCacheTTL           = "CREDVAULT_CACHE_TTL"
	EnvCacheMaxEntries    = "CREDVAULT_CACHE_MAX_ENTRIES"
	EnvLogLevel           = "CREDVAULT_LOG_LEVEL"
	EnvLogFormat          = "CREDVAULT_LOG_FORMAT"
)

// Config is the root configuration document.
type Config struct {
	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"`
	LogFile   string `hcl:"log_file,optional"`

	Crypto  *Crypto  `hcl:"crypto,block"`
	Storage *Storage `hcl:"storage,block"`
	Cache   *Cache   `hcl:"cache,block"`
	Audit   []*Audit `hcl:"audit,block"`
}

// Crypto configures key derivation. The encryption key is the master
// secret; it should come from the environment, not the file.
type Crypto struct {
	EncryptionKey string `hcl:"encryption_key,optional"`
	Salt          string `hcl:"salt,optional"`
	Iterations    int    `hcl:"iterations,optional"`
}

// Storage selects and configures the durable backend.
type Storage struct {
	Type               string `hcl:"type,label"`
	ConnectionURL      string `hcl:"connection_url,optional"`
	Table              string `hcl:"table,optional"`
	MaxOpenConnections int    `hcl:"max_open_connections,optional"`
	QueryTimeout       string `hcl:"query_timeout,optional"`
}

// BackendConfig renders the storage block as the flat string map backend
// factories take.
func (s *Storage) BackendConfig() map[string]string {
	m := make(map[string]string)
	if s.ConnectionURL != "" {
		m["connection_url"] = s.ConnectionURL
	}
	if s.Table != "" {
		m["table"] = s.Table
	}
	if s.MaxOpenConnections > 0 {
		m["max_open_connections"] = strconv.Itoa(s.MaxOpenConnections)
	}
	if s.QueryTimeout != "" {
		m["query_timeout"] = s.QueryTimeout
	}
	return m
}

// Cache tunes the plaintext credential cache.
type Cache struct {
	TTL        string `hcl:"ttl,optional"`
	MaxEntries int    `hcl:"max_entries,optional"`
}

// ParsedTTL returns the cache TTL, or zero when unset so the store applies
// its default.
func (c *Cache) ParsedTTL() (time.Duration, error) {
	if c == nil || c.TTL == "" {
		return 0, nil
	}
	ttl, err := parseutil.ParseDurationSecond(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", c.TTL, err)
	}
	return ttl, nil
}

// Audit configures one audit sink. Type is "file" or "stdout".
type Audit struct {
	Type       string `hcl:"type,label"`
	Path       string `hcl:"path,optional"`
	MaxSize    int    `hcl:"max_size,optional"`
	MaxAge     int    `hcl:"max_age,optional"`
	MaxBackups int    `hcl:"max_backups,optional"`
}

// Default returns the configuration used when no file is given: in-memory
// storage, stdout audit, info-level JSON logs. The encryption key still has
// to come from the environment.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Crypto:    &Crypto{},
		Storage:   &Storage{Type: "inmem"},
		Cache:     &Cache{},
		Audit:     []*Audit{{Type: "stdout"}},
	}
}

// Load reads an HCL config file and applies environment overrides. An empty
// path loads the defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// Decode over a fresh struct so absent blocks fall back to the
		// defaults instead of nil.
		loaded := &Config{}
		if err := hclsimple.DecodeFile(path, nil, loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		merge(cfg, loaded)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func merge(base, loaded *Config) {
	if loaded.LogLevel != "" {
		base.LogLevel = loaded.LogLevel
	}
	if loaded.LogFormat != "" {
		base.LogFormat = loaded.LogFormat
	}
	if loaded.LogFile != "" {
		base.LogFile = loaded.LogFile
	}
	if loaded.Crypto != nil {
		base.Crypto = loaded.Crypto
	}
	if loaded.Storage != nil {
		base.Storage = loaded.Storage
	}
	if loaded.Cache != nil {
		base.Cache = loaded.Cache
	}
	if len(loaded.Audit) > 0 {
		base.Audit = loaded.Audit
	}
}

// ApplyEnv overlays recognized environment variables onto the config.
func (c *Config) ApplyEnv() error {
	if c.Crypto == nil {
		c.Crypto = &Crypto{}
	}
	if c.Storage == nil {
		c.Storage = &Storage{Type: "inmem"}
	}
	if c.Cache == nil {
		c.Cache = &Cache{}
	}

	if v := os.Getenv(EnvEncryptionKey); v != "" {
		c.Crypto.EncryptionKey = v
	}
	if v := os.Getenv(EnvEncryptionSalt); v != "" {
		c.Crypto.Salt = v
	}
	if v := os.Getenv(EnvPGConnectionURL); v != "" {
		c.Storage.ConnectionURL = v
	}
	if v := os.Getenv(EnvPGMaxOpenConns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPGMaxOpenConns, err)
		}
		c.Storage.MaxOpenConnections = n
	}
	if v := os.Getenv(EnvPGQueryTimeout); v != "" {
		if _, err := parseutil.ParseDurationSecond(v); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPGQueryTimeout, err)
		}
		c.Storage.QueryTimeout = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		if _, err := parseutil.ParseDurationSecond(v); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheTTL, err)
		}
		c.Cache.TTL = v
	}
	if v := os.Getenv(EnvCacheMaxEntries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheMaxEntries, err)
		}
		c.Cache.MaxEntries = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate checks the configuration is complete enough to start a vault.
func (c *Config) Validate() error {
	if c.Crypto == nil || c.Crypto.EncryptionKey == "" {
		return fmt.Errorf("no encryption key configured: set %s or the crypto block", EnvEncryptionKey)
	}
	if c.Storage == nil || c.Storage.Type == "" {
		return fmt.Errorf("no storage type configured")
	}
	switch c.Storage.Type {
	case "inmem", "postgres":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == "postgres" && c.Storage.ConnectionURL == "" {
		return fmt.Errorf("postgres storage requires connection_url or %s", EnvPGConnectionURL)
	}
	for _, a := range c.Audit {
		switch a.Type {
		case "stdout":
		case "file":
			if a.Path == "" {
				return fmt.Errorf("file audit sink requires a path")
			}
		default:
			return fmt.Errorf("unknown audit sink type %q", a.Type)
		}
	}
	return nil
}
