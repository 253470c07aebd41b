package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/dataset"
)

// Default values for configuration.
const (
	DefaultTopN            = analyzer.DefaultTopN
	DefaultHeatmapInterval = analyzer.DefaultInterval
	DefaultWorkers         = 1
	MaxWorkers             = 64
	DefaultWebhookTimeout  = 10 * time.Second
	MaxWebhookRetries      = 5
)

// Environment variable names.
const (
	// EnvLogSources replaces log_sources with a comma-separated list.
	EnvLogSources = "LOGTRIAGE_LOG_SOURCES"

	// EnvWorkers overrides workers.
	EnvWorkers = "LOGTRIAGE_WORKERS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources:      []string{},
		TopN:            DefaultTopN,
		HeatmapInterval: DefaultHeatmapInterval,
		BotAgents:       append([]string(nil), dataset.DefaultBotTokens...),
		Workers:         DefaultWorkers,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if v := os.Getenv(EnvLogSources); v != "" {
		var sources []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		c.LogSources = sources
	}

	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}

	return nil
}
