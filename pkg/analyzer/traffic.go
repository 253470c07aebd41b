package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// TrafficEngine implements Engine for request volume analysis.
// It flags the busiest addresses that exceed the average request count and
// buckets their requests over time.
type TrafficEngine struct {
	topN     int
	interval time.Duration
}

// NewTrafficEngine creates a traffic engine.
func NewTrafficEngine(topN int, interval time.Duration) (*TrafficEngine, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("top_n must be positive, got %d", topN)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("heatmap interval must be positive, got %s", interval)
	}
	return &TrafficEngine{topN: topN, interval: interval}, nil
}

// Name returns the engine name.
func (e *TrafficEngine) Name() string {
	return "traffic"
}

// Run computes the traffic report.
func (e *TrafficEngine) Run(ctx context.Context, ds *dataset.Dataset, result *AnalysisResult) error {
	report, err := AnalyzeTraffic(ds, e.topN, e.interval)
	if err != nil {
		return err
	}
	result.Traffic = report
	return nil
}

// AnalyzeTraffic computes request totals, the suspicious addresses and
// their heatmap.
func AnalyzeTraffic(ds *dataset.Dataset, topN int, interval time.Duration) (*TrafficReport, error) {
	counts, err := ds.CountBy(dataset.FieldIP)
	if err != nil {
		return nil, err
	}

	report := &TrafficReport{
		TotalRequests: ds.Len(),
		UniqueIPs:     len(counts),
		TopN:          topN,
	}
	if report.UniqueIPs == 0 {
		return report, nil
	}
	report.AverageRequests = AverageRequests(report.TotalRequests, report.UniqueIPs)

	top := counts
	if len(top) > topN {
		top = top[:topN]
	}
	for _, c := range top {
		if c.Count > report.AverageRequests {
			report.SuspiciousIPs = append(report.SuspiciousIPs, c)
		}
	}

	if len(report.SuspiciousIPs) > 0 {
		report.Heatmap = BuildHeatmap(ds, report.SuspiciousIPs, interval)
	}
	return report, nil
}

// AverageRequests returns total/unique rounded half to even, so 2.5 is 2
// and 3.5 is 4.
func AverageRequests(total, unique int) int {
	if unique == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(total) / float64(unique)))
}

// BuildHeatmap counts the requests of each listed IP per interval bucket.
// Buckets are aligned to multiples of the interval and cover every bucket
// from the earliest to the latest request of the listed IPs, so rows have
// zeros where an IP was quiet.
func BuildHeatmap(ds *dataset.Dataset, ips []dataset.Count, interval time.Duration) *Heatmap {
	row := make(map[string]int, len(ips))
	for i, c := range ips {
		row[c.Value] = i
	}
	subset := ds.Filter(func(r *parser.LogRecord) bool {
		_, ok := row[r.IP]
		return ok
	})

	start, end, ok := subset.TimeSpan()
	if !ok {
		return nil
	}

	// Widen the interval until the span fits
	for end.Truncate(interval).Sub(start.Truncate(interval))/interval >= MaxHeatmapBuckets {
		interval *= 2
	}
	first := start.Truncate(interval)
	n := int(end.Truncate(interval).Sub(first)/interval) + 1

	hm := &Heatmap{
		Interval: interval,
		Buckets:  make([]time.Time, n),
		Rows:     make([]HeatmapRow, len(ips)),
	}
	for i := range hm.Buckets {
		hm.Buckets[i] = first.Add(time.Duration(i) * interval)
	}
	for i, c := range ips {
		hm.Rows[i] = HeatmapRow{IP: c.Value, Counts: make([]int, n)}
	}

	subset.Each(func(r *parser.LogRecord) bool {
		b := int(r.Timestamp.Truncate(interval).Sub(first) / interval)
		hm.Rows[row[r.IP]].Counts[b]++
		return true
	})
	return hm
}
