package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 60*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, DeletePolicySoft, cfg.Shipments.DeletePolicy)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("JWT_ALGORITHM", "RS256")
	t.Setenv("SHIPMENT_DELETE_POLICY", "archive")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "RS256")
	assert.Contains(t, err.Error(), "archive")
	assert.Contains(t, err.Error(), "ADMIN_USERNAME")
}
