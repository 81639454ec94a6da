package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "SERIALIZABLE", cfg.Transactions.Isolation)
		assert.Equal(t, 5, cfg.Transactions.MaxAttempts)
		assert.Equal(t, 10, cfg.Registry.MaxRegistrationYears)
		assert.Empty(t, cfg.Database.URL)
		assert.Zero(t, cfg.Server.RateLimitPerMinute)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, int32(3), cfg.Kafka.Partitions)
		assert.Equal(t, int16(1), cfg.Kafka.ReplicationFactor)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("REGISTRY_ADDR", ":9090")
		t.Setenv("REGISTRY_KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("REGISTRY_TX_BASE_BACKOFF", "50ms")
		t.Setenv("REGISTRY_TX_ISOLATION", "READ_COMMITTED")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 50*time.Millisecond, cfg.Transactions.BaseBackoff)
		assert.Equal(t, "READ_COMMITTED", cfg.Transactions.Isolation)
	})

	t.Run("rejects unknown isolation", func(t *testing.T) {
		t.Setenv("REGISTRY_TX_ISOLATION", "CHAOS")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REGISTRY_TX_ISOLATION")
	})

	t.Run("rejects zero attempts", func(t *testing.T) {
		t.Setenv("REGISTRY_TX_MAX_ATTEMPTS", "0")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("rejects negative rate limit", func(t *testing.T) {
		t.Setenv("REGISTRY_EPP_RATE_LIMIT", "-1")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REGISTRY_EPP_RATE_LIMIT")
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "RGY", cfg.Registry.ServerTridPrefix)
}
