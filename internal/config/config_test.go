package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 100, cfg.Generator.BatchSize)
	assert.InDelta(t, 37.7749, cfg.Generator.Latitude, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENERGY_SERVER_PORT", "9090")
	t.Setenv("ENERGY_DATABASE_DRIVER", "pgx")
	t.Setenv("ENERGY_GENERATOR_TIMEZONE", "UTC")
	t.Setenv("ENERGY_GENERATOR_BATCH_SIZE", "250")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "UTC", cfg.Generator.Timezone)
	assert.Equal(t, 250, cfg.Generator.BatchSize)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = c.Database.MaxOpenConns + 1 }},
		{"latitude", func(c *Config) { c.Generator.Latitude = 91 }},
		{"timezone", func(c *Config) { c.Generator.Timezone = "Mars/Olympus" }},
		{"batch size", func(c *Config) { c.Generator.BatchSize = 0 }},
		{"cron spec", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.Spec = "every tuesday"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
