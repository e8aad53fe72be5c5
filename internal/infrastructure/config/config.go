package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for EduGate Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// AppConfig identifies this deployment.
type AppConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"` // stdout, stderr, file
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains rotated file logging settings (used when output is "file").
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // files
	MaxAge     int    `yaml:"max_age"`     // days
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains authentication and request-protection settings.
type SecurityConfig struct {
	Token TokenConfig `yaml:"token"`
	CSRF  CSRFConfig  `yaml:"csrf"`
	Seed  SeedConfig  `yaml:"seed"`
}

// TokenConfig contains bearer token signing settings.
type TokenConfig struct {
	Secret        string `yaml:"secret"`
	ExpiryMinutes int    `yaml:"expiry_minutes"`
	Issuer        string `yaml:"issuer"`
}

// CSRFConfig contains double-submit CSRF settings.
type CSRFConfig struct {
	CookieName       string `yaml:"cookie_name"`
	HeaderName       string `yaml:"header_name"`
	CookieTTLMinutes int    `yaml:"cookie_ttl_minutes"`
	Secure           bool   `yaml:"secure"`
	SameSite         string `yaml:"same_site"` // lax, strict, none
}

// SeedConfig controls first-boot account seeding.
type SeedConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AdminUsername string `yaml:"admin_username"`
}

// MQTTConfig contains MQTT broker settings for security event publishing.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for auth decision metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// minTokenSecretLength is the minimum signing secret length in bytes.
const minTokenSecretLength = 32

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: EDUGATE_SECTION_KEY
// For example: EDUGATE_DATABASE_PATH, EDUGATE_TOKEN_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in defaults. Callers that build a Config in code
// (tests, the admin tool) start from here.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			ID:   "edugate-001",
			Name: "EduGate",
		},
		Database: DatabaseConfig{
			Path:        "./data/edugate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/edugate.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			},
		},
		Security: SecurityConfig{
			Token: TokenConfig{
				ExpiryMinutes: 60,
				Issuer:        "edugate",
			},
			CSRF: CSRFConfig{
				CookieName:       "csrf_token",
				HeaderName:       "x-csrf-token",
				CookieTTLMinutes: 720,
				Secure:           true,
				SameSite:         "lax",
			},
			Seed: SeedConfig{
				Enabled:       true,
				AdminUsername: "admin",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "edugate-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "edugate",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	// Database
	if v := os.Getenv("EDUGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("EDUGATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("EDUGATE_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EDUGATE_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// Security - token secret (IMPORTANT: always override in production)
	if v := os.Getenv("EDUGATE_TOKEN_SECRET"); v != "" {
		cfg.Security.Token.Secret = v
	}
	if v := os.Getenv("EDUGATE_TOKEN_EXPIRY_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EDUGATE_TOKEN_EXPIRY_MINUTES: %w", err)
		}
		cfg.Security.Token.ExpiryMinutes = minutes
	}
	if v := os.Getenv("EDUGATE_CSRF_COOKIE_NAME"); v != "" {
		cfg.Security.CSRF.CookieName = v
	}
	if v := os.Getenv("EDUGATE_CSRF_HEADER_NAME"); v != "" {
		cfg.Security.CSRF.HeaderName = v
	}

	// MQTT
	if v := os.Getenv("EDUGATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("EDUGATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("EDUGATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("EDUGATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	return nil
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.App.ID == "" {
		errs = append(errs, "app.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// A weak or empty secret lets anyone mint tokens for any role.
	if c.Security.Token.Secret == "" {
		errs = append(errs, "security.token.secret is required (set EDUGATE_TOKEN_SECRET environment variable)")
	} else if len(c.Security.Token.Secret) < minTokenSecretLength {
		errs = append(errs, "security.token.secret must be at least 32 characters")
	}

	if c.Security.Token.ExpiryMinutes <= 0 {
		errs = append(errs, "security.token.expiry_minutes must be positive")
	}

	csrf := c.Security.CSRF
	if csrf.CookieName == "" || csrf.HeaderName == "" {
		errs = append(errs, "security.csrf.cookie_name and security.csrf.header_name are required")
	} else if strings.EqualFold(csrf.CookieName, csrf.HeaderName) {
		errs = append(errs, "security.csrf.cookie_name and security.csrf.header_name must differ")
	}

	switch strings.ToLower(csrf.SameSite) {
	case "", "lax", "strict", "none":
	default:
		errs = append(errs, "security.csrf.same_site must be lax, strict or none")
	}

	if c.Logging.Output == "file" && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TokenExpiry returns the bearer token lifetime as a Duration.
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.Security.Token.ExpiryMinutes) * time.Minute
}

// CSRFCookieTTL returns the CSRF cookie lifetime as a Duration.
func (c *Config) CSRFCookieTTL() time.Duration {
	return time.Duration(c.Security.CSRF.CookieTTLMinutes) * time.Minute
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
