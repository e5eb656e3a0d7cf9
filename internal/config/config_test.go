package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 60*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "shuttle", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "shuttle:sagas", cfg.Journal.Stream)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "Asia/Seoul", cfg.Location.String())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "billing")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TZ_NAME", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Store.Timeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "host=db.internal port=6543 user=postgres password=postgres dbname=billing sslmode=disable", cfg.Database.GetDSN())
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoad_PostgRESTRequiresCredentials(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgrest")
	t.Setenv("SUPABASE_URL", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PostgREST.RetryCount)
}

func TestLoad_RejectsUnknownBackendAndZone(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TZ_NAME", "Mars/Olympus")
	_, err = Load()
	require.Error(t, err)
}
