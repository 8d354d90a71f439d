// Package config loads runtime configuration from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for the YAML file when CONFIG_FILE is unset.
const DefaultPath = "config/config.yaml"

// Duration is a time.Duration that YAML and the environment decode from
// "15s" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(repl string) error {
	parsed, err := time.ParseDuration(repl)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", repl, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host" env:"SERVER_HOST"`
	Port            int      `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	RateLimit       int      `yaml:"rate_limit" env:"SERVER_RATE_LIMIT"`
	RateBurst       int      `yaml:"rate_burst" env:"SERVER_RATE_BURST"`
	AllowedOrigins  []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	CookieSecure    bool     `yaml:"cookie_secure" env:"SERVER_COOKIE_SECURE"`
	AuditFile       string   `yaml:"audit_file" env:"SERVER_AUDIT_FILE"`
}

// AuthConfig controls session token issuance.
type AuthConfig struct {
	TokenSecret string   `yaml:"token_secret" env:"AUTH_TOKEN_SECRET"`
	TokenTTL    Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
}

// DatabaseConfig controls the postgres connection. An empty DSN keeps the
// application on the in-memory store.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
}

// CatalogConfig points at the remote catalog endpoints. Both endpoints empty
// disables the background syncer.
type CatalogConfig struct {
	GroupedEndpoint  string   `yaml:"grouped_endpoint" env:"CATALOG_GROUPED_ENDPOINT"`
	FallbackEndpoint string   `yaml:"fallback_endpoint" env:"CATALOG_FALLBACK_ENDPOINT"`
	APIKey           string   `yaml:"api_key" env:"CATALOG_API_KEY"`
	SyncInterval     Duration `yaml:"sync_interval" env:"CATALOG_SYNC_INTERVAL"`
}

// RedisConfig controls the optional grouped-catalog cache.
type RedisConfig struct {
	Addr     string   `yaml:"addr" env:"REDIS_ADDR"`
	Password string   `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int      `yaml:"db" env:"REDIS_DB"`
	CacheTTL Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
}

// LoggingConfig controls log construction.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Output string `yaml:"output" env:"LOG_OUTPUT"`
}

// Config is the aggregate runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
		},
		Auth: AuthConfig{
			TokenTTL: Duration(8 * time.Hour),
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Catalog: CatalogConfig{
			SyncInterval: Duration(5 * time.Minute),
		},
		Redis: RedisConfig{
			CacheTTL: Duration(time.Minute),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the YAML file (CONFIG_FILE or config/config.yaml when present),
// then applies environment overrides. A missing file is not an error; a
// missing token secret is.
func Load() (*Config, error) {
	// Best effort: a .env file is a development convenience.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the application cannot start without.
func (c *Config) Validate() error {
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret (AUTH_TOKEN_SECRET) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	for _, section := range []interface{}{
		&cfg.Server, &cfg.Auth, &cfg.Database, &cfg.Catalog, &cfg.Redis, &cfg.Logging,
	} {
		if err := envdecode.Decode(section); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
			return fmt.Errorf("decode environment: %w", err)
		}
	}
	return nil
}
