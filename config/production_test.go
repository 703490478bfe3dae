package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *ProductionConfig {
	t.Helper()
	cfg := &ProductionConfig{}
	require.NoError(t, env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{
		"DB_PASSWORD":    "secret",
		"JWT_SECRET_KEY": "0123456789abcdef0123456789abcdef",
	}}))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Routing.TxTimeout)
	assert.Equal(t, 800*time.Millisecond, cfg.Geo.Timeout)
	assert.Equal(t, "rotalink.visits", cfg.Events.Queue)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
	assert.NoError(t, ValidateProductionConfig(cfg))
}

func TestValidateProductionConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProductionConfig)
		wantErr string
	}{
		{"missing db password", func(c *ProductionConfig) { c.Database.Password = "" }, "DB_PASSWORD is required"},
		{"short jwt secret", func(c *ProductionConfig) { c.JWT.SecretKey = "short" }, "JWT_SECRET_KEY"},
		{"rsa without keys", func(c *ProductionConfig) { c.JWT.UseRSAKeys = true }, "JWT_PRIVATE_KEY"},
		{"bad port", func(c *ProductionConfig) { c.Server.Port = 70000 }, "SERVER_PORT"},
		{"bcrypt cost", func(c *ProductionConfig) { c.Security.BcryptCost = 4 }, "BCRYPT_COST"},
		{"log level", func(c *ProductionConfig) { c.Logging.Level = "trace" }, "LOG_LEVEL"},
		{"cache without url", func(c *ProductionConfig) { c.Cache.Enabled = true }, "CACHE_REDIS_URL"},
		{"slow geo", func(c *ProductionConfig) { c.Geo.Timeout = 2 * time.Second }, "GEO_TIMEOUT"},
		{"events without url", func(c *ProductionConfig) { c.Events.Enabled = true }, "EVENTS_AMQP_URL"},
		{"routing timeout", func(c *ProductionConfig) { c.Routing.TxTimeout = 0 }, "ROUTING_TX_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/absent.env")
	assert.NoError(t, loadEnvFile())
}
