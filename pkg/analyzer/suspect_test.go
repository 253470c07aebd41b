package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

func suspectDataset() *dataset.Dataset {
	return dataset.New([]parser.LogRecord{
		rec("45.133.1.10", "NL", 0, 200, "/", "Mozilla/5.0"),
		rec("45.133.1.11", "NL", time.Minute, 404, "/admin", "python-requests/2.31"),
		rec("45.133.10.1", "US", 2*time.Minute, 500, "/other", "Mozilla/5.0"),
		rec("45.133.1.11", "DE", 2*time.Minute, 404, "/admin", "python-requests/2.31"),
		rec("35.185.0.156", "US", 3*time.Minute, 200, "/", "curl/8.0"),
		rec("45.133.1.12", "NL", 26*time.Hour+3*time.Minute+4*time.Second, 200, "/", "Googlebot/2.1"),
	})
}

func TestParseIPPattern(t *testing.T) {
	tests := []struct {
		input     string
		wantExact bool
		match     []string
		noMatch   []string
		wantErr   bool
	}{
		{
			input:   "45.133.1.x",
			match:   []string{"45.133.1.10", "45.133.1.255"},
			noMatch: []string{"45.133.10.1", "45.133.2.1"},
		},
		{
			input:   "185.220.x.x",
			match:   []string{"185.220.101.4", "185.220.0.1"},
			noMatch: []string{"185.22.0.1"},
		},
		{
			input:     " 35.185.0.156 ",
			wantExact: true,
			match:     []string{"35.185.0.156"},
			noMatch:   []string{"35.185.0.15", "35.185.0.1566"},
		},
		{input: "", wantErr: true},
		{input: "x.1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseIPPattern(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPattern) {
					t.Errorf("ParseIPPattern() error = %v, want ErrInvalidPattern", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIPPattern() error = %v", err)
			}
			if p.exact != tt.wantExact {
				t.Errorf("exact = %v, want %v", p.exact, tt.wantExact)
			}
			for _, ip := range tt.match {
				if !p.Match(ip) {
					t.Errorf("Match(%q) = false, want true", ip)
				}
			}
			for _, ip := range tt.noMatch {
				if p.Match(ip) {
					t.Errorf("Match(%q) = true, want false", ip)
				}
			}
		})
	}
}

func TestAnalyzeSuspect_Prefix(t *testing.T) {
	p, _ := ParseIPPattern("45.133.1.x")

	report, err := AnalyzeSuspect(suspectDataset(), p, dataset.NewBotMatcher())
	if err != nil {
		t.Fatalf("AnalyzeSuspect() error = %v", err)
	}

	if report.Pattern != "45.133.1.x" {
		t.Errorf("Pattern = %q", report.Pattern)
	}
	if report.Requests != 4 {
		t.Errorf("Requests = %d, want 4", report.Requests)
	}

	checks := []struct {
		name string
		got  []dataset.Count
		want []dataset.Count
	}{
		{"BotAgents", report.BotAgents, []dataset.Count{{Value: "python-requests/2.31", Count: 2}, {Value: "Googlebot/2.1", Count: 1}}},
		{"BotURLs", report.BotURLs, []dataset.Count{{Value: "/admin", Count: 2}, {Value: "/", Count: 1}}},
		{"OtherAgents", report.OtherAgents, []dataset.Count{{Value: "Mozilla/5.0", Count: 1}}},
		{"OtherURLs", report.OtherURLs, []dataset.Count{{Value: "/", Count: 1}}},
	}
	for _, c := range checks {
		if !countsEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if report.BotRequests() != 3 {
		t.Errorf("BotRequests() = %d, want 3", report.BotRequests())
	}

	wantStatus := []StatusCount{{Status: 200, All: 2, Bot: 1}, {Status: 404, All: 2, Bot: 2}}
	if len(report.StatusCodes) != len(wantStatus) {
		t.Fatalf("StatusCodes = %+v, want %+v", report.StatusCodes, wantStatus)
	}
	for i := range wantStatus {
		if report.StatusCodes[i] != wantStatus[i] {
			t.Errorf("StatusCodes[%d] = %+v, want %+v", i, report.StatusCodes[i], wantStatus[i])
		}
	}
	if report.AllOK() {
		t.Error("AllOK() = true with 404s present")
	}

	if len(report.Regions) != 2 || report.Regions[0] != "NL" || report.Regions[1] != "DE" {
		t.Errorf("Regions = %v, want [NL DE]", report.Regions)
	}

	tf := report.Timeframe
	if tf == nil {
		t.Fatal("Timeframe is nil")
	}
	if !tf.Start.Equal(baseTime) {
		t.Errorf("Start = %v, want %v", tf.Start, baseTime)
	}
	if tf.Days != 1 || tf.Hours != 2 || tf.Minutes != 3 || tf.Seconds != 4 {
		t.Errorf("Timeframe = %dd %dh %dm %ds, want 1d 2h 3m 4s", tf.Days, tf.Hours, tf.Minutes, tf.Seconds)
	}
}

func TestAnalyzeSuspect_Exact(t *testing.T) {
	p, _ := ParseIPPattern("35.185.0.156")

	report, err := AnalyzeSuspect(suspectDataset(), p, dataset.NewBotMatcher())
	if err != nil {
		t.Fatalf("AnalyzeSuspect() error = %v", err)
	}

	if report.Requests != 1 {
		t.Errorf("Requests = %d, want 1", report.Requests)
	}
	if len(report.BotAgents) != 0 {
		t.Errorf("BotAgents = %v, want none", report.BotAgents)
	}
	if !report.AllOK() {
		t.Errorf("AllOK() = false, StatusCodes = %+v", report.StatusCodes)
	}
	if report.Timeframe == nil || report.Timeframe.Duration != 0 {
		t.Errorf("Timeframe = %+v, want zero duration", report.Timeframe)
	}
}

func TestAnalyzeSuspect_NoMatch(t *testing.T) {
	p, _ := ParseIPPattern("1.2.3.x")

	report, err := AnalyzeSuspect(suspectDataset(), p, dataset.NewBotMatcher())
	if err != nil {
		t.Fatalf("AnalyzeSuspect() error = %v", err)
	}

	if report.Requests != 0 {
		t.Errorf("Requests = %d, want 0", report.Requests)
	}
	if report.Timeframe != nil {
		t.Errorf("Timeframe = %+v, want nil", report.Timeframe)
	}
	if len(report.Regions) != 0 || len(report.StatusCodes) != 0 {
		t.Errorf("report = %+v, want empty breakdowns", report)
	}
}

func TestAnalyzeSuspect_CustomBots(t *testing.T) {
	p, _ := ParseIPPattern("35.185.0.156")

	report, err := AnalyzeSuspect(suspectDataset(), p, dataset.NewBotMatcher("curl"))
	if err != nil {
		t.Fatalf("AnalyzeSuspect() error = %v", err)
	}
	if report.BotRequests() != 1 {
		t.Errorf("BotRequests() = %d, want 1", report.BotRequests())
	}
	if len(report.StatusCodes) != 1 || report.StatusCodes[0].Bot != 1 {
		t.Errorf("StatusCodes = %+v", report.StatusCodes)
	}
}

func TestNewTimeframe(t *testing.T) {
	tests := []struct {
		name                    string
		d                       time.Duration
		days, hours, mins, secs int
	}{
		{"zero", 0, 0, 0, 0, 0},
		{"seconds", 59 * time.Second, 0, 0, 0, 59},
		{"hours", 3*time.Hour + 5*time.Second, 0, 3, 0, 5},
		{"exactly one day", 24 * time.Hour, 1, 0, 0, 0},
		{"days", 50*time.Hour + 61*time.Second, 2, 2, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := NewTimeframe(baseTime, baseTime.Add(tt.d))
			if tf.Days != tt.days || tf.Hours != tt.hours || tf.Minutes != tt.mins || tf.Seconds != tt.secs {
				t.Errorf("NewTimeframe(%s) = %dd %dh %dm %ds, want %dd %dh %dm %ds",
					tt.d, tf.Days, tf.Hours, tf.Minutes, tf.Seconds, tt.days, tt.hours, tt.mins, tt.secs)
			}
			if tf.Duration != tt.d {
				t.Errorf("Duration = %s, want %s", tf.Duration, tt.d)
			}
		})
	}
}

func TestSuspectEngine(t *testing.T) {
	if _, err := NewSuspectEngine("x", nil); err == nil {
		t.Error("NewSuspectEngine(\"x\") expected error")
	}

	engine, err := NewSuspectEngine("45.133.1.x", nil)
	if err != nil {
		t.Fatalf("NewSuspectEngine() error = %v", err)
	}
	if engine.Name() != "suspect 45.133.1.x" {
		t.Errorf("Name() = %q", engine.Name())
	}

	result := &AnalysisResult{}
	if err := engine.Run(context.Background(), suspectDataset(), result); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Suspects) != 1 || result.Suspects[0].Requests != 4 {
		t.Errorf("Suspects = %+v", result.Suspects)
	}
}
