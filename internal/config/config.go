package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Deployment DeploymentConfig
	Widgets    WidgetsConfig
	Admin      AdminClientConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
	OIDC       OIDCConfig
	API        APIConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"9643"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN             string        `env:"DB_DSN" envDefault:"data/dashboard.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// DeploymentConfig points at the YAML file holding named configuration sections.
type DeploymentConfig struct {
	Path string `env:"DEPLOYMENT_CONFIG" envDefault:"conf/deployment.yaml"`
}

// WidgetsConfig holds the widget catalog location.
type WidgetsConfig struct {
	Dir string `env:"WIDGETS_DIR" envDefault:"widgets"`
}

// AdminClientConfig holds transport settings for the remote admin service.
// Credentials are not here; they are read from the auth.configs deployment section on every lookup.
type AdminClientConfig struct {
	HTTPTimeout        time.Duration `env:"ADMIN_HTTP_TIMEOUT" envDefault:"10s"`
	InsecureSkipVerify bool          `env:"ADMIN_TLS_INSECURE_SKIP_VERIFY" envDefault:"false"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Service string `env:"LOG_SERVICE" envDefault:"widget-authorizer"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"widget_authorizer"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	Exporter   string  `env:"TRACING_EXPORTER" envDefault:"otlp-http"`
	Endpoint   string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// OIDCConfig holds caller identity verification configuration.
type OIDCConfig struct {
	Enabled        bool   `env:"OIDC_ENABLED" envDefault:"false"`
	IssuerURL      string `env:"OIDC_ISSUER_URL"`
	ClientID       string `env:"OIDC_CLIENT_ID"`
	AllowedDomains string `env:"OIDC_ALLOWED_DOMAINS"`
}

// GetAllowedDomains returns the allowed domains as a slice.
func (c *OIDCConfig) GetAllowedDomains() []string {
	if c.AllowedDomains == "" {
		return nil
	}
	domains := strings.Split(c.AllowedDomains, ",")
	for i := range domains {
		domains[i] = strings.TrimSpace(domains[i])
	}
	return domains
}

// APIConfig holds the static bearer token used when OIDC is disabled.
type APIConfig struct {
	Token string `env:"API_TOKEN"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name   string
		target any
	}{
		{"server", &cfg.Server},
		{"database", &cfg.Database},
		{"deployment", &cfg.Deployment},
		{"widgets", &cfg.Widgets},
		{"admin", &cfg.Admin},
		{"logging", &cfg.Logging},
		{"metrics", &cfg.Metrics},
		{"tracing", &cfg.Tracing},
		{"oidc", &cfg.OIDC},
		{"api", &cfg.API},
	}
	for _, s := range sections {
		if err := env.Parse(s.target); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var supportedDrivers = map[string]bool{
	"sqlite3":  true,
	"postgres": true,
	"pgx":      true,
	"mysql":    true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !supportedDrivers[c.Database.Driver] {
		return fmt.Errorf("DB_DRIVER %q is not supported (sqlite3, postgres, pgx, mysql)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Deployment.Path == "" {
		return fmt.Errorf("DEPLOYMENT_CONFIG is required")
	}
	if c.Widgets.Dir == "" {
		return fmt.Errorf("WIDGETS_DIR is required")
	}
	if c.Admin.HTTPTimeout <= 0 {
		return fmt.Errorf("ADMIN_HTTP_TIMEOUT must be positive")
	}
	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1")
	}

	// Validate OIDC config when enabled
	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
	}

	return nil
}
