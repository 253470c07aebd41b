package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/loader"
	"github.com/ccollicutt/logtriage/pkg/output"
	"github.com/ccollicutt/logtriage/pkg/parser"
	"github.com/ccollicutt/logtriage/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// timeLayouts are accepted by --from and --to. Log timestamps carry no
// zone, so these are read as UTC as well.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output  string
	From    string
	To      string
	IPs     []string
	Top     int
	Workers int
	Verbose bool
	Quiet   bool

	// Compact puts each JSON report on a single line. Set by watch so
	// successive runs form a JSON Lines stream.
	Compact bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <config-file>",
		Short: "Analyze access logs for suspicious traffic",
		Long: `Analyze the access logs listed in the configuration file.

Reports:
  - Traffic: total requests, unique IPs, average requests per IP, and the
    busiest IPs whose request count exceeds the average
  - Suspects: for each configured or --ip pattern, bot-like vs other user
    agents, the URLs they requested, status codes, timeframe and regions

--from and --to accept a timestamp (2024-02-01, 2024-02-01T10:00:00, RFC 3339)
or a duration counted back from now (e.g. 2h, 24h). Both bounds are inclusive;
a date alone starts the day for --from and ends it for --to.

Exit codes:
  0 - No suspicious IPs
  1 - Suspicious IPs found
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.From, "from", "", "Only analyze records at or after this time")
	cmd.Flags().StringVar(&opts.To, "to", "", "Only analyze records at or before this time")
	cmd.Flags().StringSliceVar(&opts.IPs, "ip", nil, "Suspect IP pattern to break down, e.g. 45.133.1.x (can be repeated)")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "Number of busiest IPs to consider (overrides top_n)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Parser goroutines per file (overrides workers)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show heatmap, rejected lines and all URLs")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_issues", "When to fire webhook (on_issues|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	report, err := runOnce(ctx, cfg, configPath, opts, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}

	// Set exit code based on results
	if report.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// runOnce performs one full batch analysis, writes the report to w and
// fires the webhooks. It is shared by analyze and watch.
func runOnce(ctx context.Context, cfg *config.Config, configPath string, opts *AnalyzeOptions, w io.Writer, logger *slog.Logger) (*output.Report, error) {
	// Create formatter first so a bad -o fails before any work
	formatter, err := createFormatter(opts)
	if err != nil {
		return nil, err
	}

	report, err := buildReport(ctx, cfg, configPath, opts, logger)
	if err != nil {
		return nil, err
	}

	// Output report
	if err := formatter.Format(ctx, report, w); err != nil {
		return nil, fmt.Errorf("formatting output: %w", err)
	}

	// Send webhooks (errors logged but don't fail analysis)
	sendWebhooks(ctx, cfg, opts, report, logger)

	return report, nil
}

// buildReport loads every log source and analyzes the combined dataset.
func buildReport(ctx context.Context, cfg *config.Config, configPath string, opts *AnalyzeOptions, logger *slog.Logger) (*output.Report, error) {
	now := time.Now()
	from, err := parseTimeFlag("from", opts.From, now)
	if err != nil {
		return nil, err
	}
	to, err := parseTimeFlag("to", opts.To, now)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if opts.Workers != 0 {
		if opts.Workers < 0 || opts.Workers > config.MaxWorkers {
			return nil, fmt.Errorf("invalid --workers %d: must be between 1 and %d", opts.Workers, config.MaxWorkers)
		}
		workers = opts.Workers
	}

	topN := cfg.TopN
	if opts.Top != 0 {
		topN = opts.Top
	}

	// Expand log source globs
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return nil, fmt.Errorf("expanding log sources: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no log files matched patterns: %v", cfg.LogSources)
	}

	a, err := analyzer.NewAnalyzer(
		analyzer.WithTimeRange(from, to),
		analyzer.WithTopN(topN),
		analyzer.WithInterval(cfg.HeatmapInterval),
		analyzer.WithSuspects(cfg.Suspects...),
		analyzer.WithSuspects(opts.IPs...),
		analyzer.WithBotMatcher(dataset.NewBotMatcher(cfg.BotAgents...)),
		analyzer.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}

	l := loader.New(loader.WithWorkers(workers), loader.WithLogger(logger))
	ds, stats := l.LoadAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading logs: %w", err)
	}
	if stats.Files == 0 {
		return nil, fmt.Errorf("no log file could be opened: %w", stats.OpenErr)
	}
	logger.Info("logs loaded",
		"files", stats.Files,
		"lines", stats.LinesRead,
		"records", stats.RecordsKept,
		"rejected", stats.Rejected())

	// Run analysis
	result, err := a.Analyze(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	result.Metadata.ConfigFile = configPath
	result.Metadata.Sources = files

	return output.NewReport(result, stats, configPath), nil
}

// parseTimeFlag reads a --from or --to value. A duration is counted back
// from now; anything else must match one of timeLayouts. A bare date given
// to --to means the last instant of that day.
func parseTimeFlag(name, value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err != nil {
			continue
		}
		if layout == time.DateOnly && name == "to" {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q: want a timestamp like 2024-02-01T10:00:00 or a duration like 2h", name, value)
}

func createFormatter(opts *AnalyzeOptions) (output.Formatter, error) {
	return output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
		Compact: opts.Compact,
	})
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are logged but don't fail the analysis.
func sendWebhooks(ctx context.Context, cfg *config.Config, opts *AnalyzeOptions, report *output.Report, logger *slog.Logger) {
	// Collect webhooks from config and CLI
	webhooks := collectWebhooks(cfg, opts)

	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range webhooks {
		// Check trigger condition
		if !wh.Trigger.ShouldFire(report.HasIssues()) {
			continue
		}

		// Send webhook
		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
			Retries: wh.Retries,
		})

		// Log result
		if resp.Success() {
			logger.Info("webhook sent", "webhook", wh.DisplayName(), "status", resp.StatusCode,
				"attempts", resp.Attempts, "duration", resp.Duration)
		} else {
			logger.Warn("webhook failed", "webhook", wh.DisplayName(), "attempts", resp.Attempts, "error", resp.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	// Add config file webhooks
	webhooks = append(webhooks, cfg.Webhooks...)

	// Add CLI webhook if specified
	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnIssues
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
