// Package config provides configuration loading and validation for LogTriage.
package config

import (
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogSources are file paths or glob patterns. Files are loaded in the
	// order the patterns are listed.
	LogSources []string `yaml:"log_sources"`

	// TopN is how many of the busiest IPs are candidates for the
	// suspicious list. Defaults to 20.
	TopN int `yaml:"top_n,omitempty"`

	// HeatmapInterval is the bucket width of the per-IP heatmap.
	// Defaults to 5m.
	HeatmapInterval time.Duration `yaml:"heatmap_interval,omitempty"`

	// BotAgents are case-insensitive user-agent substrings that mark a
	// client as a bot. Defaults to bot, spider, crawler, python-request.
	BotAgents []string `yaml:"bot_agents,omitempty"`

	// Suspects are IP patterns to break down individually, e.g.
	// "45.133.1.x" or "35.185.0.156".
	Suspects []string `yaml:"suspects,omitempty"`

	// Workers is the number of goroutines parsing each file. Defaults to 1.
	Workers int `yaml:"workers,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when suspicious IPs are found (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// ShouldFire reports whether a webhook with this trigger fires for a run.
// Unknown triggers behave like on_issues.
func (t WebhookTrigger) ShouldFire(hasIssues bool) bool {
	switch t {
	case WebhookTriggerAlways:
		return true
	case WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	// ${VAR} and $VAR are expanded from the environment.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Retries is how many more times a delivery is attempted after a
	// 429, 5xx or transport failure. At most MaxWebhookRetries.
	Retries int `yaml:"retries,omitempty"`
}

// DisplayName returns Name, or the URL when no name is set.
func (w *WebhookConfig) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.URL
}
