package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 9643, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Admin.HTTPTimeout)
	assert.Equal(t, "0.0.0.0:9643", cfg.Server.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/dash")
	t.Setenv("ADMIN_HTTP_TIMEOUT", "3s")
	t.Setenv("OIDC_ALLOWED_DOMAINS", "acme.com, example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Admin.HTTPTimeout)
	assert.Equal(t, []string{"acme.com", "example.org"}, cfg.OIDC.GetAllowedDomains())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"empty deployment path", func(c *Config) { c.Deployment.Path = "" }},
		{"empty widgets dir", func(c *Config) { c.Widgets.Dir = "" }},
		{"zero admin timeout", func(c *Config) { c.Admin.HTTPTimeout = 0 }},
		{"oidc without issuer", func(c *Config) { c.OIDC.Enabled = true; c.OIDC.ClientID = "x" }},
		{"oidc without client", func(c *Config) { c.OIDC.Enabled = true; c.OIDC.IssuerURL = "https://idp" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

const deploymentYAML = `
auth.configs:
  type: local
  properties:
    adminServiceBaseUrl: https://localhost:9443/admin
    adminUsername: admin
    adminPassword: admin
scalar.section: 42
`

func TestDeployment_GetConfigurationObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(deploymentYAML), 0o600))

	d, err := LoadDeployment(path)
	require.NoError(t, err)

	section, err := d.GetConfigurationObject("auth.configs")
	require.NoError(t, err)
	require.NotNil(t, section)
	props, ok := section["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "admin", props["adminUsername"])

	missing, err := d.GetConfigurationObject("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = d.GetConfigurationObject("scalar.section")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestLoadDeployment_Errors(t *testing.T) {
	_, err := LoadDeployment(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = ParseDeployment([]byte("a: [unclosed"))
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}
