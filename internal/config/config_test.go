package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "REDIS_ADDR", "KAFKA_BROKERS", "JWT_TTL", "WORKER_COUNT",
		"LEDGER_STRICT_WITHDRAW", "RESET_TOKEN_TTL", "MIGRATE_ON_START", "ENV", "JWT_SECRET",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.True(t, cfg.Ledger.StrictWithdraw)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, DefaultJWTSecret, cfg.JWT.Secret)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("LEDGER_STRICT_WITHDRAW", "false")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TTL)
	assert.False(t, cfg.Ledger.StrictWithdraw)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "zero")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_COUNT")
}

func TestFromEnvRejectsEmptyPool(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvRequiresSecretOutsideDevelopment(t *testing.T) {
	for _, env := range []string{"production", "staging", "docker"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("ENV", env)

			t.Setenv("JWT_SECRET", "")
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "JWT_SECRET")

			t.Setenv("JWT_SECRET", DefaultJWTSecret)
			_, err = FromEnv()
			require.Error(t, err)

			t.Setenv("JWT_SECRET", "s3cret-for-"+env)
			cfg, err := FromEnv()
			require.NoError(t, err)
			assert.Equal(t, "s3cret-for-"+env, cfg.JWT.Secret)
		})
	}

	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultJWTSecret, cfg.JWT.Secret)
}
