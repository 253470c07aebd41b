package output

import (
	"context"
	"io"

	"github.com/segmentio/encoding/json"
)

// JSONFormatter writes reports as JSON. Compact output puts each report on
// one line so repeated runs form a JSON Lines stream.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	if !f.opts.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(f.view(report))
}

// view selects what gets encoded. Quiet output is the summary alone; the
// heatmap matrix is only included when verbose. The caller's report is
// never modified.
func (f *JSONFormatter) view(report *Report) any {
	if f.opts.Quiet {
		return report.Summary
	}
	if f.opts.Verbose || report.Traffic == nil || report.Traffic.Heatmap == nil {
		return report
	}

	trimmed := *report
	traffic := *report.Traffic
	traffic.Heatmap = nil
	trimmed.Traffic = &traffic
	return &trimmed
}
