package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Chain     ChainConfig
	Hub       HubConfig
	MQ        MQConfig
	Telemetry TelemetryConfig
	Lending   LendingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `env:"SERVER_PORT" envDefault:"8080"`
	Env            string        `env:"SERVER_ENV" envDefault:"development"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Driver    string `env:"STORE_DRIVER" envDefault:"surrealdb"` // surrealdb or memory
	Host      string `env:"DB_HOST" envDefault:"localhost"`
	Port      string `env:"DB_PORT" envDefault:"8000"`
	Namespace string `env:"DB_NAMESPACE" envDefault:"lootbound"`
	Database  string `env:"DB_DATABASE" envDefault:"main"`
	User      string `env:"DB_USER" envDefault:"root"`
	Password  string `env:"DB_PASSWORD" envDefault:"root"`
}

// ChainConfig holds the contract gateway settings. An empty RPCURL runs the
// server with the chain disabled.
type ChainConfig struct {
	RPCURL        string        `env:"CHAIN_RPC_URL"`
	PrivateKey    string        `env:"CHAIN_PRIVATE_KEY"` // hex, optional 0x prefix
	ChainID       int64         `env:"CHAIN_ID" envDefault:"11155111"`
	PartyRegistry string        `env:"CHAIN_PARTY_REGISTRY"`
	LootManager   string        `env:"CHAIN_LOOT_MANAGER"`
	Timeout       time.Duration `env:"CHAIN_TIMEOUT" envDefault:"30s"`
}

// HubConfig holds WebSocket session settings
type HubConfig struct {
	SendBuffer     int           `env:"HUB_SEND_BUFFER" envDefault:"64"`
	PingPeriod     time.Duration `env:"HUB_PING_PERIOD" envDefault:"30s"`
	WriteWait      time.Duration `env:"HUB_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize int64         `env:"HUB_MAX_MESSAGE_SIZE" envDefault:"65536"`
}

// MQConfig holds the domain-event broker settings. An empty URL disables it.
type MQConfig struct {
	URL      string `env:"MQ_URL"`
	Exchange string `env:"MQ_EXCHANGE" envDefault:"lootbound.events"`
}

// TelemetryConfig holds OpenTelemetry settings. An empty endpoint disables tracing.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"lootbound-api"`
}

// LendingConfig holds marketplace settings
type LendingConfig struct {
	SweepInterval time.Duration `env:"LENDING_SWEEP_INTERVAL" envDefault:"5m"` // 0 disables the sweeper
}

// RateLimitConfig holds per-caller request limits
type RateLimitConfig struct {
	Rate   int           `env:"RATE_LIMIT_RATE" envDefault:"100"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	Burst  int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// UsesMemoryStore reports whether the in-process store replaces SurrealDB
func (c *Config) UsesMemoryStore() bool {
	return c.Database.Driver == "memory"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	// Database validation
	switch c.Database.Driver {
	case "surrealdb":
		if c.Database.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if c.Database.Port == "" {
			errs = append(errs, errors.New("DB_PORT is required"))
		}
		if c.Database.Namespace == "" {
			errs = append(errs, errors.New("DB_NAMESPACE is required"))
		}
		if c.Database.Database == "" {
			errs = append(errs, errors.New("DB_DATABASE is required"))
		}
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_DRIVER=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be 'surrealdb' or 'memory', got '%s'", c.Database.Driver))
	}

	// Chain validation - only when a node is configured
	if c.Chain.IsConfigured() {
		if err := c.Chain.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("chain: %w", err))
		}
	}
	if c.Chain.Timeout <= 0 {
		errs = append(errs, errors.New("CHAIN_TIMEOUT must be positive"))
	}

	// Hub validation
	if c.Hub.SendBuffer <= 0 {
		errs = append(errs, errors.New("HUB_SEND_BUFFER must be positive"))
	}
	if c.Hub.PingPeriod <= 0 || c.Hub.WriteWait <= 0 {
		errs = append(errs, errors.New("HUB_PING_PERIOD and HUB_WRITE_WAIT must be positive"))
	}

	if c.MQ.URL != "" && c.MQ.Exchange == "" {
		errs = append(errs, errors.New("MQ_EXCHANGE is required when MQ_URL is set"))
	}

	if c.Lending.SweepInterval < 0 {
		errs = append(errs, errors.New("LENDING_SWEEP_INTERVAL must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsConfigured returns true if a node URL is set
func (c ChainConfig) IsConfigured() bool {
	return c.RPCURL != ""
}

// Validate checks that all required chain fields are present
func (c ChainConfig) Validate() error {
	var errs []error
	if _, err := url.ParseRequestURI(c.RPCURL); err != nil {
		errs = append(errs, fmt.Errorf("CHAIN_RPC_URL is not a valid URL: %w", err))
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x")); err != nil {
		errs = append(errs, errors.New("CHAIN_PRIVATE_KEY must be a hex-encoded secp256k1 key"))
	}
	for name, addr := range map[string]string{
		"CHAIN_PARTY_REGISTRY": c.PartyRegistry,
		"CHAIN_LOOT_MANAGER":   c.LootManager,
	} {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("%s must be a 0x-prefixed 20-byte hex address", name))
		}
	}
	if c.ChainID <= 0 {
		errs = append(errs, errors.New("CHAIN_ID must be positive"))
	}
	return errors.Join(errs...)
}
