// Package analyzer computes triage statistics over a loaded dataset:
// traffic volume per client and per-suspect breakdowns.
package analyzer

import (
	"time"

	"github.com/ccollicutt/logtriage/pkg/dataset"
)

// Default analysis parameters.
const (
	DefaultTopN     = 20
	DefaultInterval = 5 * time.Minute

	// MaxHeatmapBuckets bounds the number of columns in a heatmap. Longer
	// spans widen the interval instead.
	MaxHeatmapBuckets = 2000
)

// TrafficReport summarizes request volume per client address.
type TrafficReport struct {
	// TotalRequests is the number of records analyzed.
	TotalRequests int

	// UniqueIPs is the number of distinct client addresses.
	UniqueIPs int

	// AverageRequests is TotalRequests / UniqueIPs rounded half to even.
	AverageRequests int

	// TopN is the number of busiest addresses considered.
	TopN int

	// SuspiciousIPs are the busiest addresses whose request count exceeds
	// AverageRequests, largest first.
	SuspiciousIPs []dataset.Count

	// Heatmap holds per-interval request counts for each suspicious IP.
	Heatmap *Heatmap
}

// HasSuspicious returns true if any address exceeded the average.
func (r *TrafficReport) HasSuspicious() bool {
	return r != nil && len(r.SuspiciousIPs) > 0
}

// Heatmap is a matrix of request counts: one row per IP, one column per
// time bucket.
type Heatmap struct {
	// Interval is the bucket width actually used.
	Interval time.Duration

	// Buckets are the bucket start times, ascending and contiguous.
	Buckets []time.Time

	// Rows follow the order of TrafficReport.SuspiciousIPs.
	Rows []HeatmapRow
}

// HeatmapRow holds one IP's counts, aligned with Heatmap.Buckets.
type HeatmapRow struct {
	IP     string
	Counts []int
}

// SuspectReport breaks down the traffic of the addresses matching one
// IP pattern.
type SuspectReport struct {
	// Pattern is the pattern as given, e.g. "45.133.1.x".
	Pattern string

	// Requests is the number of matching records.
	Requests int

	// BotAgents and BotURLs count bot-like user agents and the URLs they
	// requested.
	BotAgents []dataset.Count
	BotURLs   []dataset.Count

	// OtherAgents and OtherURLs count the remaining user agents and URLs.
	OtherAgents []dataset.Count
	OtherURLs   []dataset.Count

	// StatusCodes compares all requests with bot requests per status code.
	StatusCodes []StatusCount

	// Timeframe is nil when nothing matched.
	Timeframe *Timeframe

	// Regions lists the affected regions in first-appearance order.
	Regions []string
}

// BotRequests returns the number of matching records sent by bot-like agents.
func (r *SuspectReport) BotRequests() int {
	total := 0
	for _, c := range r.BotAgents {
		total += c.Count
	}
	return total
}

// AllOK returns true if every matching request ended with status 200.
func (r *SuspectReport) AllOK() bool {
	return len(r.StatusCodes) == 1 && r.StatusCodes[0].Status == 200
}

// StatusCount is one status code's request count for all agents and for
// bot-like agents only.
type StatusCount struct {
	Status int
	All    int
	Bot    int
}

// Timeframe is the span between the first and last matching request.
type Timeframe struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration

	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// TimeRange defines a time window for filtering records. A zero bound is open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// AnalysisResult contains the complete analysis output.
type AnalysisResult struct {
	// Traffic is the traffic analysis.
	Traffic *TrafficReport

	// Suspects holds one report per suspect pattern, in the order given.
	Suspects []*SuspectReport

	// Metadata provides context about the analysis.
	Metadata AnalysisMetadata
}

// HasIssues returns true if the traffic analysis flagged any address.
func (r *AnalysisResult) HasIssues() bool {
	return r.Traffic.HasSuspicious()
}

// AnalysisMetadata provides context about the analysis run.
type AnalysisMetadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string

	// Sources lists the log files that were analyzed.
	Sources []string

	// TimeRange is the time filter applied, if any.
	TimeRange *TimeRange

	// StartTime is when analysis began.
	StartTime time.Time

	// EndTime is when analysis completed.
	EndTime time.Time

	// RecordsAnalyzed is the number of records left after time filtering.
	RecordsAnalyzed int

	// DataStart and DataEnd bound the analyzed records' timestamps.
	DataStart time.Time
	DataEnd   time.Time
}
