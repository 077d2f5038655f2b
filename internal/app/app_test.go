package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Secret:            "secret",
		Host:              "127.0.0.1",
		Port:              8080,
		ParticipantsLimit: 10,
		RoomTTL:           time.Hour,
		CleanupInterval:   24 * time.Hour,
		LogLevel:          "INFO",
		RedisHost:         "localhost",
		RedisPort:         6379,
	}
}

func TestAppConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Secret = ""
	assert.Error(t, cfg.Validate(), "empty secret must be rejected")

	cfg = validConfig()
	cfg.ParticipantsLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RoomTTL = time.Second
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.CleanupInterval = 0
	assert.Error(t, cfg.Validate())
}
