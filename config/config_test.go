package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.TrackingRequiresToken)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Contains(t, cfg.Database.DSN(), "dbname=cakes2")
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ParsesOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/cakes")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("ORDER_TRACKING_REQUIRES_TOKEN", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://u:p@db:5432/cakes", cfg.Database.DSN())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.TrackingRequiresToken)
}

func TestValidate_RejectsUnknownEnv(t *testing.T) {
	cfg := &Config{Env: "staging", JWTSecret: "x"}
	assert.Error(t, cfg.Validate())
}
