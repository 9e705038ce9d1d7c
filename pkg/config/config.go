// Package config loads GAME SDK settings from defaults, an optional YAML
// file, and GAME_-prefixed environment variables, in that order.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	gerrors "github.com/virtuals-io/game-go/pkg/errors"
)

type Config struct {
	API       APIConfig       `koanf:"api"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type APIConfig struct {
	BaseURL        string `koanf:"base_url"`
	Version        string `koanf:"version"`
	Key            string `koanf:"key"`
	RequestTimeout int    `koanf:"request_timeout"` // seconds
	MaxRetries     int    `koanf:"max_retries"`
	RetryDelay     int    `koanf:"retry_delay"` // seconds, initial backoff
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// RequestTimeoutDuration returns the request timeout as a time.Duration.
func (a APIConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(a.RequestTimeout) * time.Second
}

// RetryDelayDuration returns the initial retry delay as a time.Duration.
func (a APIConfig) RetryDelayDuration() time.Duration {
	return time.Duration(a.RetryDelay) * time.Second
}

// Load reads configuration from an optional YAML file at path and the
// GAME_ environment (GAME_API_BASE_URL -> api.base_url). An empty path
// skips the file step.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	k.Set("api.base_url", "https://api.virtuals.io")
	k.Set("api.version", "v2")
	k.Set("api.request_timeout", 30)
	k.Set("api.max_retries", 3)
	k.Set("api.retry_delay", 1)

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.exporter", "none")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, gerrors.New(gerrors.CodeConfiguration, "failed to load config file", err).
				WithContext("path", path)
		}
	}

	if err := k.Load(env.Provider("GAME_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "GAME_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, gerrors.New(gerrors.CodeConfiguration, "failed to load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, gerrors.New(gerrors.CodeConfiguration, "invalid configuration value", err)
	}

	return &cfg, nil
}
