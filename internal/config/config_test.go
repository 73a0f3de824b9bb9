package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadRejectsBadDurations(t *testing.T) {
	for _, tc := range []struct {
		key, value string
	}{
		{"RECORD_RETENTION", "forever"},
		{"SWEEP_INTERVAL", "0s"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			v := viper.New()
			v.Set(tc.key, tc.value)
			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}
