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
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.UseKafka)
	assert.Equal(t, time.Second, cfg.OutboxPeriod)
	assert.Equal(t, 10, cfg.OutboxLimit)
	assert.Equal(t, 120, cfg.CacheTTLSeconds())
	assert.Empty(t, cfg.ClickHouseAddr)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("USE_KAFKA", "true")
	t.Setenv("OUTBOX_PERIOD", "250ms")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.UseKafka)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPeriod)
	assert.Equal(t, 90, cfg.CacheTTLSeconds())
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"driver desconocido", "DB_DRIVER", "oracle"},
		{"periodo no positivo", "OUTBOX_PERIOD", "0s"},
		{"límite no positivo", "OUTBOX_LIMIT", "0"},
		{"límite no numérico", "OUTBOX_LIMIT", "muchos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()

			assert.Error(t, err)
		})
	}
}
