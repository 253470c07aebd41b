package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and fills in defaults for
// unset values.
func Validate(cfg *Config) error {
	if len(cfg.LogSources) == 0 {
		return errors.New("log_sources: at least one log source is required")
	}
	for i, src := range cfg.LogSources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("log_sources[%d]: empty path", i)
		}
	}

	switch {
	case cfg.TopN < 0:
		return fmt.Errorf("top_n: must be positive, got %d", cfg.TopN)
	case cfg.TopN == 0:
		cfg.TopN = DefaultTopN
	}

	switch {
	case cfg.HeatmapInterval < 0:
		return fmt.Errorf("heatmap_interval: must be positive, got %s", cfg.HeatmapInterval)
	case cfg.HeatmapInterval == 0:
		cfg.HeatmapInterval = DefaultHeatmapInterval
	}

	switch {
	case cfg.Workers < 0 || cfg.Workers > MaxWorkers:
		return fmt.Errorf("workers: must be between 1 and %d, got %d", MaxWorkers, cfg.Workers)
	case cfg.Workers == 0:
		cfg.Workers = DefaultWorkers
	}

	for i, token := range cfg.BotAgents {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("bot_agents[%d]: empty token", i)
		}
	}

	for i, pattern := range cfg.Suspects {
		if _, err := analyzer.ParseIPPattern(pattern); err != nil {
			return fmt.Errorf("suspects[%d]: %w", i, err)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			return fmt.Errorf("webhooks[%d] (%s): %w", i, cfg.Webhooks[i].DisplayName(), err)
		}
	}

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
		}
	} else {
		// Default to on_issues
		wh.Trigger = WebhookTriggerOnIssues
	}

	// Default timeout
	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	if wh.Retries < 0 || wh.Retries > MaxWebhookRetries {
		return fmt.Errorf("retries must be between 0 and %d, got %d", MaxWebhookRetries, wh.Retries)
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
