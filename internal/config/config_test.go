package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "dukkani")
	t.Setenv("DB_NAME", "dukkani")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "order-events", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Order.StoreCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.Order.IdempotencyTTL)
	assert.Equal(t, 30*time.Second, cfg.Order.IdempotencyPendingTTL)
}

func TestLoadParsesBrokerList(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsMissingDatabase(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("IDEMPOTENCY_TTL", "-1m")

	_, err := Load()
	require.Error(t, err)
}

func TestDSNEscapesCredentials(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u@x", Password: "p/w", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u%40x:p%2Fw@db:5432/n?sslmode=disable", c.DSN())
}
