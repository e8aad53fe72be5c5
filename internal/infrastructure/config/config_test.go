package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validSecret meets the 32-character minimum requirement.
const validSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
app:
  id: "test-app"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 8080
security:
  token:
    secret: "test-secret-key-at-least-32-chars!"
    expiry_minutes: 30
  csrf:
    cookie_name: "xsrf"
    header_name: "x-xsrf"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.ID != "test-app" {
		t.Errorf("App.ID = %q, want %q", cfg.App.ID, "test-app")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Security.Token.ExpiryMinutes != 30 {
		t.Errorf("Token.ExpiryMinutes = %d, want 30", cfg.Security.Token.ExpiryMinutes)
	}
	if cfg.Security.CSRF.CookieName != "xsrf" {
		t.Errorf("CSRF.CookieName = %q, want %q", cfg.Security.CSRF.CookieName, "xsrf")
	}
	if cfg.Security.CSRF.HeaderName != "x-xsrf" {
		t.Errorf("CSRF.HeaderName = %q, want %q", cfg.Security.CSRF.HeaderName, "x-xsrf")
	}
}

func TestLoad_DefaultsSurviveSparseFile(t *testing.T) {
	configPath := writeConfig(t, `
security:
  token:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.Token.ExpiryMinutes != 60 {
		t.Errorf("default expiry = %d, want 60", cfg.Security.Token.ExpiryMinutes)
	}
	if cfg.Security.CSRF.CookieName != "csrf_token" {
		t.Errorf("default cookie name = %q, want csrf_token", cfg.Security.CSRF.CookieName)
	}
	if cfg.Security.CSRF.HeaderName != "x-csrf-token" {
		t.Errorf("default header name = %q, want x-csrf-token", cfg.Security.CSRF.HeaderName)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
app:
  id: "test-app"
api:
  port: 8080
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for missing secret, got nil")
	}
	if !strings.Contains(err.Error(), "security.token.secret") {
		t.Errorf("error should mention the secret, got %v", err)
	}
}

func TestLoad_InvalidPortOverride(t *testing.T) {
	configPath := writeConfig(t, `
security:
  token:
    secret: "test-secret-key-at-least-32-chars!"
`)
	t.Setenv("EDUGATE_API_PORT", "eighty")

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for non-numeric EDUGATE_API_PORT")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing app ID",
			mutate:  func(c *Config) { c.App.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing token secret",
			mutate:  func(c *Config) { c.Security.Token.Secret = "" },
			wantErr: true,
		},
		{
			name:    "token secret too short",
			mutate:  func(c *Config) { c.Security.Token.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "zero expiry",
			mutate:  func(c *Config) { c.Security.Token.ExpiryMinutes = 0 },
			wantErr: true,
		},
		{
			name:    "missing csrf header name",
			mutate:  func(c *Config) { c.Security.CSRF.HeaderName = "" },
			wantErr: true,
		},
		{
			name: "csrf cookie and header share a name",
			mutate: func(c *Config) {
				c.Security.CSRF.CookieName = "csrf"
				c.Security.CSRF.HeaderName = "CSRF"
			},
			wantErr: true,
		},
		{
			name:    "bad same site",
			mutate:  func(c *Config) { c.Security.CSRF.SameSite = "sometimes" },
			wantErr: true,
		},
		{
			name: "file logging without path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.File.Path = ""
			},
			wantErr: true,
		},
		{
			name: "invalid QoS only checked when mqtt enabled",
			mutate: func(c *Config) {
				c.MQTT.QoS = 3
			},
			wantErr: false,
		},
		{
			name: "invalid QoS with mqtt enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.Token.Secret = validSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestConfig_SecurityDurations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.TokenExpiry().Minutes(); got != 60 {
		t.Errorf("TokenExpiry() = %v minutes, want 60", got)
	}
	if got := cfg.CSRFCookieTTL().Hours(); got != 12 {
		t.Errorf("CSRFCookieTTL() = %v hours, want 12", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("EDUGATE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("EDUGATE_API_HOST", "192.168.1.1")
	t.Setenv("EDUGATE_API_PORT", "9090")
	t.Setenv("EDUGATE_TOKEN_SECRET", "token-secret")
	t.Setenv("EDUGATE_TOKEN_EXPIRY_MINUTES", "15")
	t.Setenv("EDUGATE_CSRF_COOKIE_NAME", "my_csrf")
	t.Setenv("EDUGATE_CSRF_HEADER_NAME", "x-my-csrf")
	t.Setenv("EDUGATE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("EDUGATE_MQTT_USERNAME", "testuser")
	t.Setenv("EDUGATE_MQTT_PASSWORD", "testpass")
	t.Setenv("EDUGATE_INFLUXDB_TOKEN", "secret-token")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Security.Token.Secret != "token-secret" {
		t.Errorf("Token.Secret = %q, want %q", cfg.Security.Token.Secret, "token-secret")
	}
	if cfg.Security.Token.ExpiryMinutes != 15 {
		t.Errorf("Token.ExpiryMinutes = %d, want 15", cfg.Security.Token.ExpiryMinutes)
	}
	if cfg.Security.CSRF.CookieName != "my_csrf" {
		t.Errorf("CSRF.CookieName = %q, want %q", cfg.Security.CSRF.CookieName, "my_csrf")
	}
	if cfg.Security.CSRF.HeaderName != "x-my-csrf" {
		t.Errorf("CSRF.HeaderName = %q, want %q", cfg.Security.CSRF.HeaderName, "x-my-csrf")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.App.ID == "" {
		t.Error("defaultConfig should have non-empty App.ID")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB should be disabled by default")
	}
	if cfg.Security.Token.Secret != "" {
		t.Error("defaultConfig must not ship a signing secret")
	}
}
