package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dealscope")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.rentcast.io/v1", cfg.RentcastBaseURL)
	assert.Equal(t, 2.0, cfg.RentcastRateLimit)
	assert.Equal(t, 30*time.Second, cfg.RentcastTimeout)
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/dealscope")
	t.Setenv("PORT", "9000")
	t.Setenv("RENTCAST_API_KEY", "key")
	t.Setenv("RENTCAST_RATE_LIMIT", "0.5")
	t.Setenv("RENTCAST_TIMEOUT", "5s")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "key", cfg.RentcastAPIKey)
	assert.Equal(t, 0.5, cfg.RentcastRateLimit)
	assert.Equal(t, 5*time.Second, cfg.RentcastTimeout)
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}},
		{"bad rate limit", map[string]string{"DATABASE_URL": "x", "RENTCAST_RATE_LIMIT": "fast"}},
		{"zero rate limit", map[string]string{"DATABASE_URL": "x", "RENTCAST_RATE_LIMIT": "0"}},
		{"bad timeout", map[string]string{"DATABASE_URL": "x", "RENTCAST_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}
