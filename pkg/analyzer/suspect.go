package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// ErrInvalidPattern is returned for IP patterns that cannot select anything
// narrower than the whole dataset.
var ErrInvalidPattern = errors.New("invalid IP pattern")

// IPPattern selects client addresses. "45.133.1.x" matches every address
// starting with "45.133.1."; a pattern without a wildcard matches one
// address exactly.
type IPPattern struct {
	raw    string
	prefix string
	exact  bool
}

// ParseIPPattern parses an IP pattern. The text up to the first 'x' is the
// prefix.
func ParseIPPattern(s string) (IPPattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return IPPattern{}, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	i := strings.IndexByte(s, 'x')
	if i < 0 {
		return IPPattern{raw: s, prefix: s, exact: true}, nil
	}
	if i == 0 {
		return IPPattern{}, fmt.Errorf("%w %q: matches every address", ErrInvalidPattern, s)
	}
	return IPPattern{raw: s, prefix: s[:i]}, nil
}

// String returns the pattern as given.
func (p IPPattern) String() string {
	return p.raw
}

// Match reports whether ip is selected by the pattern.
func (p IPPattern) Match(ip string) bool {
	if p.exact {
		return ip == p.prefix
	}
	return strings.HasPrefix(ip, p.prefix)
}

// Select returns the records whose client address matches the pattern.
func (p IPPattern) Select(ds *dataset.Dataset) *dataset.Dataset {
	return ds.Filter(func(r *parser.LogRecord) bool { return p.Match(r.IP) })
}

// SuspectEngine implements Engine for one suspect pattern.
type SuspectEngine struct {
	pattern IPPattern
	bots    *dataset.BotMatcher
}

// NewSuspectEngine creates a suspect engine. A nil matcher uses the default
// bot tokens.
func NewSuspectEngine(pattern string, bots *dataset.BotMatcher) (*SuspectEngine, error) {
	p, err := ParseIPPattern(pattern)
	if err != nil {
		return nil, err
	}
	if bots == nil {
		bots = dataset.NewBotMatcher()
	}
	return &SuspectEngine{pattern: p, bots: bots}, nil
}

// Name returns the engine name.
func (e *SuspectEngine) Name() string {
	return "suspect " + e.pattern.String()
}

// Run appends the suspect report to result.
func (e *SuspectEngine) Run(ctx context.Context, ds *dataset.Dataset, result *AnalysisResult) error {
	report, err := AnalyzeSuspect(ds, e.pattern, e.bots)
	if err != nil {
		return err
	}
	result.Suspects = append(result.Suspects, report)
	return nil
}

// AnalyzeSuspect breaks down the traffic of the addresses matching pattern.
func AnalyzeSuspect(ds *dataset.Dataset, pattern IPPattern, bots *dataset.BotMatcher) (*SuspectReport, error) {
	matched := pattern.Select(ds)
	botSet, otherSet := matched.Partition(bots)

	report := &SuspectReport{
		Pattern:  pattern.String(),
		Requests: matched.Len(),
	}

	var err error
	if report.BotAgents, err = botSet.CountBy(dataset.FieldUserAgent); err != nil {
		return nil, err
	}
	if report.BotURLs, err = botSet.CountBy(dataset.FieldURL); err != nil {
		return nil, err
	}
	if report.OtherAgents, err = otherSet.CountBy(dataset.FieldUserAgent); err != nil {
		return nil, err
	}
	if report.OtherURLs, err = otherSet.CountBy(dataset.FieldURL); err != nil {
		return nil, err
	}
	if report.StatusCodes, err = statusCounts(matched, botSet); err != nil {
		return nil, err
	}
	if report.Regions, err = matched.Unique(dataset.FieldRegion); err != nil {
		return nil, err
	}

	if start, end, ok := matched.TimeSpan(); ok {
		report.Timeframe = NewTimeframe(start, end)
	}
	return report, nil
}

// statusCounts pairs the per-status counts of all and bot requests.
func statusCounts(all, bots *dataset.Dataset) ([]StatusCount, error) {
	allCounts, err := all.CountBy(dataset.FieldStatus)
	if err != nil {
		return nil, err
	}
	botCounts, err := bots.CountBy(dataset.FieldStatus)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int, len(botCounts))
	for _, c := range botCounts {
		byStatus[c.Value] = c.Count
	}

	out := make([]StatusCount, 0, len(allCounts))
	for _, c := range allCounts {
		status, err := strconv.Atoi(c.Value)
		if err != nil {
			return nil, fmt.Errorf("status %q: %w", c.Value, err)
		}
		out = append(out, StatusCount{Status: status, All: c.Count, Bot: byStatus[c.Value]})
	}
	return out, nil
}

// NewTimeframe describes the span from start to end, split into whole days,
// hours, minutes and seconds.
func NewTimeframe(start, end time.Time) *Timeframe {
	d := end.Sub(start)
	total := int(d / time.Second)
	return &Timeframe{
		Start:    start,
		End:      end,
		Duration: d,
		Days:     total / 86400,
		Hours:    total % 86400 / 3600,
		Minutes:  total % 3600 / 60,
		Seconds:  total % 60,
	}
}
