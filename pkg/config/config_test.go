package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stock-simulator/pkg/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.False(t, cfg.App.Autostart)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "market_ticks", cfg.Kafka.Topic)
	assert.Equal(t, int64(0), cfg.Simulator.Seed)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("APP_AUTOSTART", "true")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SIMULATOR_SEED", "42")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Port)
	assert.True(t, cfg.App.Autostart)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, int64(42), cfg.Simulator.Seed)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Port: ":8080"}}
	assert.NoError(t, cfg.Validate())

	cfg.Kafka = config.KafkaConfig{Enabled: true, Topic: "ticks"}
	assert.Error(t, cfg.Validate(), "enabled kafka without brokers")

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.Validate())

	cfg.Redis = config.RedisConfig{Enabled: true}
	assert.Error(t, cfg.Validate(), "enabled redis without addr")
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LoggerConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = config.NewLogger(config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}
