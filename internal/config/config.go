package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Addr            string
	Retention       time.Duration // how long an untouched negotiation record survives
	SweepInterval   time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	LogLevel        string
	LogFormat       string
	LogFile         string
}

// Load reads values from environment variables, falling back to defaults.
// CORS_ALLOWED_ORIGINS format: "https://a.example,https://b.example" or "*".
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom is Load with a caller-supplied viper instance, mainly for tests.
func LoadFrom(v *viper.Viper) (Config, error) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("RECORD_RETENTION", "24h")
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")
	v.AutomaticEnv()

	addr := strings.TrimSpace(v.GetString("HTTP_ADDR"))
	if addr == "" {
		return Config{}, errors.New("HTTP_ADDR must not be empty")
	}

	retention, err := positiveDuration(v, "RECORD_RETENTION")
	if err != nil {
		return Config{}, err
	}
	sweepInterval, err := positiveDuration(v, "SWEEP_INTERVAL")
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := positiveDuration(v, "SHUTDOWN_TIMEOUT")
	if err != nil {
		return Config{}, err
	}

	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return Config{
		Addr:            addr,
		Retention:       retention,
		SweepInterval:   sweepInterval,
		ShutdownTimeout: shutdownTimeout,
		AllowedOrigins:  origins,
		LogLevel:        strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.TrimSpace(v.GetString("LOG_FORMAT")),
		LogFile:         strings.TrimSpace(v.GetString("LOG_FILE")),
	}, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 1h30m: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
