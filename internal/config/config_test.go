package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 5*time.Minute, cfg.Audit.Timeout)
		assert.Equal(t, 24*time.Hour, cfg.Audit.ReportCacheTTL)
		assert.False(t, cfg.Audit.Concurrent)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, "host=localhost port=5432 user=postgres password=password dbname=gratipay sslmode=disable",
			cfg.Database.DSN())
	})

	t.Run("overrides", func(t *testing.T) {
		viper.Reset()
		viper.Set("database.host", "db.internal")
		viper.Set("audit.timeout", "90s")
		viper.Set("audit.concurrent", true)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 90*time.Second, cfg.Audit.Timeout)
		assert.True(t, cfg.Audit.Concurrent)
	})

	t.Run("invalid ssl mode", func(t *testing.T) {
		viper.Reset()
		viper.Set("database.ssl_mode", "sometimes")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid database config")
	})

	t.Run("zero timeout", func(t *testing.T) {
		viper.Reset()
		viper.Set("audit.timeout", "0s")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid audit config")
	})
}

func TestValidateServer(t *testing.T) {
	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Error(t, cfg.ValidateServer(), "JWT secret is required to serve")

	cfg.Server.JWTSecretKey = "0123456789abcdef"
	assert.NoError(t, cfg.ValidateServer())
}
