package output

import (
	"context"
	"fmt"
	"io"
	"strings"
)

const textTimeLayout = "2006-01-02 15:04:05"

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "LogTriage: %d records, %d unique IPs, %d suspicious IPs\n",
		report.Summary.RecordsAnalyzed,
		report.Summary.UniqueIPs,
		report.Summary.SuspiciousIPs)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	// Header
	fmt.Fprintln(w, "=== LogTriage Analysis Report ===")
	fmt.Fprintln(w)

	if report.Traffic != nil {
		f.formatTraffic(report.Traffic, w)
	}
	for i := range report.Suspects {
		f.formatSuspect(&report.Suspects[i], w)
	}
	if f.opts.Verbose && report.Traffic != nil && report.Traffic.Heatmap != nil {
		f.formatHeatmap(report.Traffic.Heatmap, w)
	}

	// Summary
	s := report.Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d lines read, %d parsed, %d records kept, %d suspicious IPs\n",
		s.LinesRead, s.LinesParsed, s.RecordsKept, s.SuspiciousIPs)
	if s.ParseFailures > 0 || s.CoercionFailures > 0 {
		fmt.Fprintf(w, "Skipped: %d malformed lines, %d lines with bad values\n",
			s.ParseFailures, s.CoercionFailures)
	}

	if f.opts.Verbose {
		if len(report.Rejected) > 0 {
			fmt.Fprintln(w, "Rejected lines:")
			for _, r := range report.Rejected {
				fmt.Fprintf(w, "  - %s\n", r)
			}
		}
		if dr := report.Metadata.DataRange; dr != nil {
			fmt.Fprintf(w, "Data range: %s to %s\n", dr.Start.Format(textTimeLayout), dr.End.Format(textTimeLayout))
		}
		fmt.Fprintf(w, "Records analyzed: %d\n", s.RecordsAnalyzed)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
		fmt.Fprintf(w, "Run ID: %s\n", report.Metadata.RunID)
	}

	return nil
}

func (f *TextFormatter) formatTraffic(t *Traffic, w io.Writer) {
	fmt.Fprintln(w, "[TRAFFIC]")
	fmt.Fprintf(w, "  Total requests: %d\n", t.TotalRequests)
	fmt.Fprintf(w, "  Unique IP addresses: %d\n", t.UniqueIPs)
	fmt.Fprintf(w, "  Average requests per IP: %d (rounded)\n", t.AverageRequests)

	if len(t.SuspiciousIPs) == 0 {
		fmt.Fprintln(w, "  No IP above average")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Suspicious: %d of the top %d IPs exceed the average\n", len(t.SuspiciousIPs), t.TopN)
	writeCounts(w, t.SuspiciousIPs)
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatSuspect(s *Suspect, w io.Writer) {
	fmt.Fprintf(w, "[SUSPECT] %s\n", s.Pattern)

	if s.Requests == 0 {
		fmt.Fprintln(w, "  No matching requests")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Requests: %d (%d by bot-like user agents)\n", s.Requests, s.BotRequests)

	if len(s.BotAgents) == 0 {
		fmt.Fprintln(w, "  No bot-like user agents")
	} else {
		fmt.Fprintln(w, "  Bot-like user agents:")
		writeCounts(w, s.BotAgents)
		fmt.Fprintf(w, "  URLs requested by bot-like user agents: %d unique\n", len(s.BotURLs))
		writeCounts(w, f.limit(s.BotURLs))
	}

	if len(s.OtherAgents) > 0 {
		fmt.Fprintln(w, "  Other user agents:")
		writeCounts(w, s.OtherAgents)
		fmt.Fprintf(w, "  URLs requested by other user agents: %d unique\n", len(s.OtherURLs))
		writeCounts(w, f.limit(s.OtherURLs))
	}

	if s.AllOK {
		fmt.Fprintf(w, "  Status codes: all %d requests ended with 200 OK\n", s.Requests)
	} else {
		fmt.Fprintln(w, "  Status codes:")
		fmt.Fprintf(w, "    %-6s %8s %8s\n", "STATUS", "ALL", "BOT")
		for _, sc := range s.StatusCodes {
			fmt.Fprintf(w, "    %-6d %8d %8d\n", sc.Status, sc.All, sc.Bot)
		}
	}

	if tf := s.Timeframe; tf != nil {
		fmt.Fprintf(w, "  Timeframe: %s to %s\n", tf.Start.Format(textTimeLayout), tf.End.Format(textTimeLayout))
		fmt.Fprintf(w, "  Duration: %d days, %d hours, %d minutes, %d seconds\n",
			tf.Days, tf.Hours, tf.Minutes, tf.Seconds)
	}

	fmt.Fprintf(w, "  Regions (%d): %s\n", len(s.Regions), strings.Join(s.Regions, ", "))
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatHeatmap(hm *Heatmap, w io.Writer) {
	fmt.Fprintf(w, "[HEATMAP] requests per %s, %d intervals\n", hm.Interval, len(hm.Buckets))
	for _, row := range hm.Rows {
		peak, at, active := row.Peak()
		if at < 0 {
			continue
		}
		fmt.Fprintf(w, "  %-18s peak %d at %s, active in %d intervals\n",
			row.IP, peak, hm.Buckets[at].Format(textTimeLayout), active)
	}
	fmt.Fprintln(w)
}

// limit shortens URL lists outside verbose mode.
func (f *TextFormatter) limit(c []Count) []Count {
	const maxURLs = 10
	if f.opts.Verbose || len(c) <= maxURLs {
		return c
	}
	return c[:maxURLs]
}

func writeCounts(w io.Writer, counts []Count) {
	for _, c := range counts {
		value := c.Value
		if value == "" {
			value = "(empty)"
		}
		fmt.Fprintf(w, "    %6d  %s\n", c.Count, value)
	}
}
