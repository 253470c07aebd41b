package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ccollicutt/logtriage/pkg/dataset"
)

// Analyzer orchestrates the traffic analysis and the suspect analyses.
type Analyzer struct {
	engines []Engine

	// Options
	timeRange *TimeRange
	topN      int
	interval  time.Duration
	suspects  []string
	bots      *dataset.BotMatcher
	logger    *slog.Logger
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithTimeRange limits analysis to records within the given time range.
// A zero bound leaves that side open.
func WithTimeRange(start, end time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		if start.IsZero() && end.IsZero() {
			return
		}
		a.timeRange = &TimeRange{Start: start, End: end}
	}
}

// WithTopN sets how many of the busiest addresses are considered suspicious
// candidates.
func WithTopN(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.topN = n
	}
}

// WithInterval sets the heatmap bucket width.
func WithInterval(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		a.interval = d
	}
}

// WithSuspects adds IP patterns to break down individually.
func WithSuspects(patterns ...string) AnalyzerOption {
	return func(a *Analyzer) {
		a.suspects = append(a.suspects, patterns...)
	}
}

// WithBotMatcher sets the user-agent classifier used by suspect analyses.
func WithBotMatcher(m *dataset.BotMatcher) AnalyzerOption {
	return func(a *Analyzer) {
		if m != nil {
			a.bots = m
		}
	}
}

// WithLogger sets the logger for per-engine diagnostics.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(opts ...AnalyzerOption) (*Analyzer, error) {
	a := &Analyzer{
		topN:     DefaultTopN,
		interval: DefaultInterval,
		bots:     dataset.NewBotMatcher(),
		logger:   slog.New(slog.DiscardHandler),
	}

	// Apply options
	for _, opt := range opts {
		opt(a)
	}

	if tr := a.timeRange; tr != nil && !tr.Start.IsZero() && !tr.End.IsZero() && tr.End.Before(tr.Start) {
		return nil, fmt.Errorf("time range end %s is before start %s",
			tr.End.Format(time.RFC3339), tr.Start.Format(time.RFC3339))
	}

	traffic, err := NewTrafficEngine(a.topN, a.interval)
	if err != nil {
		return nil, fmt.Errorf("creating traffic engine: %w", err)
	}
	a.engines = append(a.engines, traffic)

	seen := make(map[string]bool)
	for _, pattern := range a.suspects {
		if seen[pattern] {
			continue
		}
		seen[pattern] = true

		engine, err := NewSuspectEngine(pattern, a.bots)
		if err != nil {
			return nil, fmt.Errorf("creating engine for suspect %q: %w", pattern, err)
		}
		a.engines = append(a.engines, engine)
	}

	return a, nil
}

// Analyze runs every engine over ds and returns their combined results.
func (a *Analyzer) Analyze(ctx context.Context, ds *dataset.Dataset) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Metadata: AnalysisMetadata{
			TimeRange: a.timeRange,
			StartTime: time.Now(),
		},
	}

	// Apply time range filter
	if a.timeRange != nil {
		ds = ds.FilterTimeRange(a.timeRange.Start, a.timeRange.End)
	}
	result.Metadata.RecordsAnalyzed = ds.Len()
	if start, end, ok := ds.TimeSpan(); ok {
		result.Metadata.DataStart = start
		result.Metadata.DataEnd = end
	}

	for _, engine := range a.engines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		began := time.Now()
		if err := engine.Run(ctx, ds, result); err != nil {
			return nil, fmt.Errorf("running %s analysis: %w", engine.Name(), err)
		}
		a.logger.Debug("analysis finished", "engine", engine.Name(), "took", time.Since(began))
	}

	result.Metadata.EndTime = time.Now()

	return result, nil
}
