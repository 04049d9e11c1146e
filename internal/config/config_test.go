package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "DEV", cfg.Environment)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, "catalog", cfg.Agent.Provider)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.Scope.RequireClient)
}

func TestLoadRequiresClientOutsideDev(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want bool
	}{
		{"prod default", "environment: PROD\n", true},
		{"staging default", "environment: staging\n", true},
		{"dev default", "environment: DEV\n", false},
		{"prod explicit off", "environment: PROD\nscope:\n  require_client: false\n", false},
		{"dev explicit on", "environment: DEV\nscope:\n  require_client: true\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yaml), 0o600))

			cfg, err := Load(viper.New(), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Scope.RequireClient)
		})
	}
}

func TestLoadReadsFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
environment: prod
server:
  port: 9090
db:
  driver: postgres
  host: db.internal
scope:
  require_client: true
engine:
  costs:
    agent: 250
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.env"), []byte("ORCHESTRATOR_DB_NAME=flows_test\n"), 0o600))
	t.Setenv("ORCHESTRATOR_LOG_LEVEL", "debug")
	t.Cleanup(func() { os.Unsetenv("ORCHESTRATOR_DB_NAME") })

	cfg, err := Load(viper.New(), filepath.Join(dir, "test.env"))
	require.NoError(t, err)

	assert.Equal(t, "PROD", cfg.Environment)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "flows_test", cfg.DB.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Scope.RequireClient)
	assert.Equal(t, 250.0, cfg.Engine.Costs["agent"])
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "dbname=flows_test")
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(viper.New(), "does-not-exist.env")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Server.Port = 8080
		c.DB.Driver = "memory"
		c.Agent.Provider = "catalog"
		return c
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.DB.Driver = "sqlite"
	assert.ErrorIs(t, c.Validate(), ErrInvalidDriver)

	c = valid()
	c.Agent.Provider = "sidecar"
	assert.ErrorIs(t, c.Validate(), ErrSidecarURLRequired)

	c = valid()
	c.Agent.Provider = "openai"
	assert.ErrorIs(t, c.Validate(), ErrOpenAIKeyRequired)

	c = valid()
	c.Agent.Provider = "oracle"
	assert.ErrorIs(t, c.Validate(), ErrInvalidAgentProvider)

	c = valid()
	c.TLS.Enable = true
	assert.ErrorIs(t, c.Validate(), ErrTLSFilesRequired)

	c = valid()
	c.Server.Port = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidPort)
}
