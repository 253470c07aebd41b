// Package output provides formatting and output generation for analysis results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/loader"
)

// Report is the complete analysis output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Traffic is the request volume analysis.
	Traffic *Traffic `json:"traffic,omitempty"`

	// Suspects holds one breakdown per suspect pattern.
	Suspects []Suspect `json:"suspects,omitempty"`

	// Rejected holds sample lines the loader skipped or dropped.
	Rejected []loader.Failure `json:"rejected,omitempty"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	LinesRead        int `json:"lines_read"`
	LinesParsed      int `json:"lines_parsed"`
	RecordsKept      int `json:"records_kept"`
	ParseFailures    int `json:"parse_failures"`
	CoercionFailures int `json:"coercion_failures"`

	// RecordsAnalyzed is the number of records inside the time range.
	RecordsAnalyzed int `json:"records_analyzed"`

	UniqueIPs       int `json:"unique_ips"`
	SuspiciousIPs   int `json:"suspicious_ips"`
	SuspectsChecked int `json:"suspects_checked"`
}

// Count is a value and how often it occurred.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Traffic is the JSON form of analyzer.TrafficReport.
type Traffic struct {
	TotalRequests   int      `json:"total_requests"`
	UniqueIPs       int      `json:"unique_ips"`
	AverageRequests int      `json:"average_requests"`
	TopN            int      `json:"top_n"`
	SuspiciousIPs   []Count  `json:"suspicious_ips"`
	Heatmap         *Heatmap `json:"heatmap,omitempty"`
}

// Heatmap is the JSON form of analyzer.Heatmap.
type Heatmap struct {
	Interval string       `json:"interval"`
	Buckets  []time.Time  `json:"buckets"`
	Rows     []HeatmapRow `json:"rows"`
}

// HeatmapRow holds one IP's per-bucket counts.
type HeatmapRow struct {
	IP     string `json:"ip"`
	Counts []int  `json:"counts"`
}

// Peak returns the largest count, the index of its first bucket and the
// number of buckets with any requests. The index is -1 for a row of zeros.
func (r HeatmapRow) Peak() (count, index, active int) {
	index = -1
	for i, c := range r.Counts {
		if c > 0 {
			active++
		}
		if c > count {
			count, index = c, i
		}
	}
	return count, index, active
}

// Suspect is the JSON form of analyzer.SuspectReport.
type Suspect struct {
	Pattern     string        `json:"pattern"`
	Requests    int           `json:"requests"`
	BotRequests int           `json:"bot_requests"`
	BotAgents   []Count       `json:"bot_agents"`
	BotURLs     []Count       `json:"bot_urls"`
	OtherAgents []Count       `json:"other_agents"`
	OtherURLs   []Count       `json:"other_urls"`
	StatusCodes []StatusCount `json:"status_codes"`
	AllOK       bool          `json:"all_ok"`
	Timeframe   *Timeframe    `json:"timeframe,omitempty"`
	Regions     []string      `json:"regions"`
}

// StatusCount compares all and bot requests for one status code.
type StatusCount struct {
	Status int `json:"status"`
	All    int `json:"all"`
	Bot    int `json:"bot"`
}

// Timeframe is the span of a suspect's requests.
type Timeframe struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration string    `json:"duration"`
	Days     int       `json:"days"`
	Hours    int       `json:"hours"`
	Minutes  int       `json:"minutes"`
	Seconds  int       `json:"seconds"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// RunID identifies this analysis run in reports and webhook payloads.
	RunID string `json:"run_id"`

	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists the log files that were analyzed.
	Sources []string `json:"sources"`

	// TimeRange is the time filter that was applied, if any.
	TimeRange *TimeRange `json:"time_range,omitempty"`

	// DataRange bounds the analyzed records' timestamps.
	DataRange *TimeRange `json:"data_range,omitempty"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration_ns"`
}

// TimeRange represents a time window. A zero bound is open.
type TimeRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// NewReport creates a Report from analysis results and load statistics.
func NewReport(result *analyzer.AnalysisResult, stats loader.Stats, configFile string) *Report {
	md := result.Metadata
	report := &Report{
		Rejected: stats.Samples,
		Metadata: Metadata{
			RunID:      uuid.NewString(),
			ConfigFile: configFile,
			Sources:    md.Sources,
			AnalyzedAt: md.EndTime,
			Duration:   md.EndTime.Sub(md.StartTime),
		},
		Summary: Summary{
			LinesRead:        stats.LinesRead,
			LinesParsed:      stats.LinesParsed,
			RecordsKept:      stats.RecordsKept,
			ParseFailures:    stats.ParseFailures,
			CoercionFailures: stats.CoercionFailures,
			RecordsAnalyzed:  md.RecordsAnalyzed,
			SuspectsChecked:  len(result.Suspects),
		},
	}

	if md.TimeRange != nil {
		report.Metadata.TimeRange = &TimeRange{
			Start: md.TimeRange.Start,
			End:   md.TimeRange.End,
		}
	}
	if !md.DataStart.IsZero() {
		report.Metadata.DataRange = &TimeRange{Start: md.DataStart, End: md.DataEnd}
	}

	if t := result.Traffic; t != nil {
		report.Traffic = newTraffic(t)
		report.Summary.UniqueIPs = t.UniqueIPs
		report.Summary.SuspiciousIPs = len(t.SuspiciousIPs)
	}
	for _, s := range result.Suspects {
		report.Suspects = append(report.Suspects, newSuspect(s))
	}

	return report
}

// HasIssues returns true if any suspicious IPs were found.
func (r *Report) HasIssues() bool {
	return r.Summary.SuspiciousIPs > 0
}

func newTraffic(t *analyzer.TrafficReport) *Traffic {
	out := &Traffic{
		TotalRequests:   t.TotalRequests,
		UniqueIPs:       t.UniqueIPs,
		AverageRequests: t.AverageRequests,
		TopN:            t.TopN,
		SuspiciousIPs:   counts(t.SuspiciousIPs),
	}
	if hm := t.Heatmap; hm != nil {
		out.Heatmap = &Heatmap{
			Interval: hm.Interval.String(),
			Buckets:  hm.Buckets,
		}
		for _, row := range hm.Rows {
			out.Heatmap.Rows = append(out.Heatmap.Rows, HeatmapRow{IP: row.IP, Counts: row.Counts})
		}
	}
	return out
}

func newSuspect(s *analyzer.SuspectReport) Suspect {
	out := Suspect{
		Pattern:     s.Pattern,
		Requests:    s.Requests,
		BotRequests: s.BotRequests(),
		BotAgents:   counts(s.BotAgents),
		BotURLs:     counts(s.BotURLs),
		OtherAgents: counts(s.OtherAgents),
		OtherURLs:   counts(s.OtherURLs),
		AllOK:       s.AllOK(),
		Regions:     s.Regions,
	}
	for _, sc := range s.StatusCodes {
		out.StatusCodes = append(out.StatusCodes, StatusCount{Status: sc.Status, All: sc.All, Bot: sc.Bot})
	}
	if tf := s.Timeframe; tf != nil {
		out.Timeframe = &Timeframe{
			Start:    tf.Start,
			End:      tf.End,
			Duration: tf.Duration.String(),
			Days:     tf.Days,
			Hours:    tf.Hours,
			Minutes:  tf.Minutes,
			Seconds:  tf.Seconds,
		}
	}
	return out
}

func counts(in []dataset.Count) []Count {
	out := make([]Count, len(in))
	for i, c := range in {
		out[i] = Count{Value: c.Value, Count: c.Count}
	}
	return out
}
