package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/tranche/internal/domain/vesting"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	HTTP      HTTPConfig      `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path enables a rotating log file instead of the console.
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type TransportConfig struct {
	Mode           string        `yaml:"mode"` // "stdio" or "http"
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type HTTPConfig struct {
	CORSOrigins []string `yaml:"cors_origins"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// TrustProxy keys rate limiting on X-Forwarded-For; set it only behind
	// a proxy that overwrites the header.
	TrustProxy bool `yaml:"trust_proxy"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LedgerConfig struct {
	Owner              string        `yaml:"owner"`
	Rescuer            string        `yaml:"rescuer"`
	Custody            string        `yaml:"custody"`
	Decimals           uint8         `yaml:"decimals"`
	MaxPrincipalTokens uint64        `yaml:"max_principal_tokens"`
	MinHorizon         time.Duration `yaml:"min_horizon"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		DB: DBConfig{
			Path: "tranche.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  6,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Transport: TransportConfig{
			Mode:           "stdio",
			SessionTimeout: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		HTTP: HTTPConfig{
			RateLimit: 20,
			RateBurst: 40,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Ledger: LedgerConfig{
			Custody:            "custody",
			Decimals:           vesting.DefaultDecimals,
			MaxPrincipalTokens: vesting.DefaultMaxPrincipalTokens,
			MinHorizon:         vesting.DefaultMinHorizon,
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path falls back to TRANCHE_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TRANCHE_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("TRANCHE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TRANCHE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid TRANCHE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("TRANCHE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TRANCHE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("TRANCHE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("TRANCHE_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("TRANCHE_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid TRANCHE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if origins := os.Getenv("TRANCHE_HTTP_CORS_ORIGINS"); origins != "" {
		cfg.HTTP.CORSOrigins = strings.Split(origins, ",")
	}
	if trust := os.Getenv("TRANCHE_HTTP_TRUST_PROXY"); trust != "" {
		v, err := strconv.ParseBool(trust)
		if err != nil {
			return fmt.Errorf("invalid TRANCHE_HTTP_TRUST_PROXY: %w", err)
		}
		cfg.HTTP.TrustProxy = v
	}
	if owner := os.Getenv("TRANCHE_LEDGER_OWNER"); owner != "" {
		cfg.Ledger.Owner = owner
	}
	if rescuer := os.Getenv("TRANCHE_LEDGER_RESCUER"); rescuer != "" {
		cfg.Ledger.Rescuer = rescuer
	}
	if custody := os.Getenv("TRANCHE_LEDGER_CUSTODY"); custody != "" {
		cfg.Ledger.Custody = custody
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q: must be stdio or http", c.Transport.Mode)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Transport.Mode == "http" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
		return errors.New("http rate limit and burst must not be negative")
	}
	if c.Ledger.Decimals > vesting.MaxDecimals {
		return fmt.Errorf("ledger decimals %d exceeds %d", c.Ledger.Decimals, vesting.MaxDecimals)
	}
	if c.Ledger.MaxPrincipalTokens == 0 {
		return errors.New("ledger max_principal_tokens must be positive")
	}
	if c.Ledger.MinHorizon < 0 {
		return errors.New("ledger min_horizon must not be negative")
	}
	if err := c.Ledger.Roles().Validate(); err != nil {
		return fmt.Errorf("ledger roles: %w", err)
	}
	return nil
}

// Roles returns the configured ledger role holders.
func (l LedgerConfig) Roles() vesting.Roles {
	return vesting.Roles{
		Owner:   vesting.ParseAccount(l.Owner),
		Rescuer: vesting.ParseAccount(l.Rescuer),
		Custody: vesting.ParseAccount(l.Custody),
	}
}

// Policy returns the grant limits in base units.
func (l LedgerConfig) Policy() vesting.Policy {
	return vesting.Policy{
		MaxPrincipal: vesting.TokenUnits(l.MaxPrincipalTokens, l.Decimals),
		MinHorizon:   l.MinHorizon,
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
