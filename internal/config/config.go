package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config shuttle-ledger (HTTP API) configuration
type Config struct {
	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	Store struct {
		Backend string
		Timeout time.Duration // per remote call
	}
	PostgREST struct {
		URL        string // e.g. https://xyz.supabase.co
		ServiceKey string
		RetryCount int // reads only
	}
	Database DatabaseConfig
	Migrate  bool // apply the embedded schema on startup (postgres backend)
	Redis    RedisConfig
	Journal  struct {
		Enabled bool
		Stream  string
	}
	MQTT MQTTConfig
	Log  struct {
		Level  string
		Format string
	}
	Timezone string
	Location *time.Location
}

// Load reads the environment, applying defaults
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ReadTimeout = parseDuration(getEnv("HTTP_READ_TIMEOUT", "15s"), 15*time.Second)
	cfg.HTTP.WriteTimeout = parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "60s"), 60*time.Second)
	cfg.HTTP.ShutdownTimeout = parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "5s"), 5*time.Second)

	cfg.Store.Backend = getEnv("STORE_BACKEND", BackendPostgREST)
	cfg.Store.Timeout = parseDuration(getEnv("STORE_TIMEOUT", "5s"), 5*time.Second)

	cfg.PostgREST.URL = getEnv("SUPABASE_URL", "")
	cfg.PostgREST.ServiceKey = getEnv("SUPABASE_SERVICE_ROLE_KEY", "")
	cfg.PostgREST.RetryCount = parseInt(getEnv("POSTGREST_READ_RETRIES", "2"), 2)

	cfg.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "shuttle",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.Migrate = getEnv("DB_MIGRATE", "false") == "true"

	cfg.Redis = RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.Journal.Enabled = getEnv("SAGA_JOURNAL_ENABLED", "false") == "true"
	cfg.Journal.Stream = getEnv("SAGA_JOURNAL_STREAM", "shuttle:sagas")

	cfg.MQTT = MQTTConfig{
		Broker:      "tcp://localhost:1883",
		ClientID:    "shuttle-ledger",
		QoS:         1,
		TopicPrefix: "shuttle/alerts",
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Timezone = getEnv("TZ_NAME", "Asia/Seoul")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendPostgREST:
		if c.PostgREST.URL == "" || c.PostgREST.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the %s backend", BackendPostgREST)
		}
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
