package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/loader"
	"github.com/ccollicutt/logtriage/pkg/parser"

	"github.com/spf13/cobra"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose    bool
	ConfigPath string
	Samples    int
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <log-file>",
		Short: "Diagnose why log lines are rejected",
		Long: `Diagnose how well a log file matches the expected access-log format.

This command reads the file once and reports:
- Lines read, parsed and kept
- Sample rejected lines with their line numbers and the reason
- The time span and client count of the usable records

With --config it also checks the configuration file, its log sources and
webhooks.

Example:
  logtriage diagnose access.log
  logtriage diagnose -v --config config.yaml access.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Also check this configuration file")
	cmd.Flags().IntVar(&opts.Samples, "samples", loader.DefaultMaxSamples, "Number of rejected lines to show")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, logPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check log file existence
	result := checkLogFile(logPath)
	results = append(results, result)

	// 2. Parse every line
	if result.Status != "error" {
		results = append(results, checkLogContent(ctx, logPath, opts)...)
	}

	// 3. Optional configuration checks
	if opts.ConfigPath != "" {
		cfg, result := checkConfigParseable(ctx, opts.ConfigPath)
		results = append(results, result)
		if cfg != nil {
			results = append(results, checkLogSources(cfg)...)
			results = append(results, checkWebhooks(cfg, opts)...)
		}
	}

	printDiagnostics(w, results, opts)
	return nil
}

func checkLogFile(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Log File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Log file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access log file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Log file is empty"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

// checkLogContent loads the file and reports parse results, rejected line
// samples and the span of the usable records.
func checkLogContent(ctx context.Context, path string, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	samples := opts.Samples
	if samples < 0 {
		samples = 0
	}
	ds, stats := loader.New(loader.WithMaxSamples(samples)).Load(ctx, path)

	parsing := DiagnosticResult{
		Check: "Line Parsing",
		Details: []string{
			fmt.Sprintf("Lines read: %d", stats.LinesRead),
			fmt.Sprintf("Lines parsed: %d", stats.LinesParsed),
			fmt.Sprintf("Records kept: %d", stats.RecordsKept),
			fmt.Sprintf("Malformed lines: %d", stats.ParseFailures),
			fmt.Sprintf("Lines with bad values: %d", stats.CoercionFailures),
		},
	}
	switch {
	case stats.OpenErr != nil:
		parsing.Status = "error"
		parsing.Message = fmt.Sprintf("Cannot read file: %v", stats.OpenErr)
		return append(results, parsing)
	case stats.RecordsKept == 0:
		parsing.Status = "error"
		parsing.Message = "No line matches the access-log format"
		parsing.Suggests = []string{
			`Expected: <ip> <ident> <region> [dd/mm/yyyy:HH:MM:SS] "<method> <url> <protocol>" <status> <size> "<referrer>" "<user_agent>" <duration>`,
		}
	case stats.Rejected() == 0:
		parsing.Status = "ok"
		parsing.Message = fmt.Sprintf("All %d lines parsed", stats.LinesRead)
	case stats.Rejected()*2 > stats.LinesRead:
		parsing.Status = "error"
		parsing.Message = fmt.Sprintf("Only %d/%d lines usable", stats.RecordsKept, stats.LinesRead)
	default:
		parsing.Status = "warning"
		parsing.Message = fmt.Sprintf("%d/%d lines rejected", stats.Rejected(), stats.LinesRead)
	}
	if stats.ReadErr != nil {
		parsing.Status = "error"
		parsing.Message = fmt.Sprintf("Reading stopped early: %v", stats.ReadErr)
	}
	results = append(results, parsing)

	if len(stats.Samples) > 0 {
		rejected := DiagnosticResult{
			Check:   "Rejected Lines",
			Status:  "warning",
			Message: fmt.Sprintf("Showing %d of %d rejected lines", len(stats.Samples), stats.Rejected()),
		}
		for _, f := range stats.Samples {
			rejected.Details = append(rejected.Details,
				fmt.Sprintf("line %d (%s): %s", f.LineNum, f.Kind, f.Reason),
				"  "+truncate(f.Line, 80))
		}
		results = append(results, rejected)
	}

	if start, end, ok := ds.TimeSpan(); ok {
		span := DiagnosticResult{
			Check:   "Records",
			Status:  "ok",
			Message: fmt.Sprintf("%s to %s", start.Format(time.DateTime), end.Format(time.DateTime)),
		}
		if ips, err := ds.Unique(dataset.FieldIP); err == nil {
			span.Details = append(span.Details, fmt.Sprintf("Unique IPs: %d", len(ips)))
		}
		bots, _ := ds.Partition(dataset.NewBotMatcher())
		span.Details = append(span.Details, fmt.Sprintf("Bot-like requests: %d", bots.Len()))
		results = append(results, span)
	}

	return results
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Suspects: %d", len(cfg.Suspects)),
		fmt.Sprintf("Top N: %d", cfg.TopN),
		fmt.Sprintf("Workers: %d", cfg.Workers),
	}
	return cfg, result
}

func checkLogSources(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	totalFiles := 0
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		// Check if it's a glob pattern; expand it the way analyze does
		if strings.ContainsAny(source, "*?[") {
			matches, err := parser.ExpandGlobs([]string{source})
			if err == nil && len(matches) == 1 && matches[0] == source {
				// Unmatched patterns come back unchanged
				if _, statErr := os.Stat(source); statErr != nil {
					matches = nil
				}
			}
			if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			} else if len(matches) == 0 {
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the log files exist at this path",
					"Verify the glob pattern syntax",
					"Directories matched by the pattern are skipped",
				}
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				totalFiles += len(matches)
			}
		} else {
			// Direct file path
			info, err := os.Stat(source)
			if os.IsNotExist(err) {
				result.Status = "error"
				result.Message = "File does not exist"
				result.Suggests = []string{"Check if the log file path is correct"}
			} else if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot access file: %v", err)
				result.Suggests = []string{"Check file permissions"}
			} else if info.IsDir() {
				result.Status = "error"
				result.Message = "Path is a directory, not a file"
				result.Suggests = []string{
					"Use a glob pattern to match files in directory",
					"Example: /var/log/nginx/*.log",
				}
			} else if info.Size() == 0 {
				result.Status = "warning"
				result.Message = "File is empty (0 bytes)"
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
				totalFiles++
			}
		}
		results = append(results, result)
	}

	if totalFiles == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== LogTriage Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nLogs are usable but some lines will be skipped.")
	} else {
		fmt.Fprintln(w, "\nLogs look good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", wh.DisplayName()),
		}

		issues := []string{}
		warnings := []string{}

		// Check URL
		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		// Check trigger
		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnIssues, config.WebhookTriggerAlways, config.WebhookTriggerNever:
				// Valid
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_issues, always, or never)", wh.Trigger))
			}
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", wh.DisplayName())
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	// Any response (even 4xx/5xx) means the server is reachable
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
