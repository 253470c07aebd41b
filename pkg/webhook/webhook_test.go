package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/ccollicutt/logtriage/pkg/output"
)

func newTestReport() *output.Report {
	return &output.Report{
		Summary: output.Summary{
			LinesRead:     100,
			LinesParsed:   98,
			RecordsKept:   97,
			ParseFailures: 2,
			UniqueIPs:     10,
			SuspiciousIPs: 1,
		},
		Traffic: &output.Traffic{
			TotalRequests:   97,
			UniqueIPs:       10,
			AverageRequests: 10,
			TopN:            20,
			SuspiciousIPs:   []output.Count{{Value: "45.133.1.11", Count: 40}},
		},
		Metadata: output.Metadata{
			RunID:      "5f0c6f2e-8a4b-4a8e-9d1e-2f3a4b5c6d7e",
			ConfigFile: "test.yaml",
			Sources:    []string{"access.log"},
			AnalyzedAt: time.Now(),
			Duration:   time.Second,
		},
	}
}

// statusSequence answers with the given statuses in order, repeating the
// last one, and counts the requests it saw.
func statusSequence(t *testing.T, calls *atomic.Int32, statuses ...int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if n > len(statuses) {
			n = len(statuses)
		}
		w.WriteHeader(statuses[n-1])
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Send_Success(t *testing.T) {
	var got *http.Request
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		receivedBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	report := newTestReport()
	resp := NewClient().Send(context.Background(), report, SendOptions{URL: server.URL})

	if !resp.Success() {
		t.Fatalf("expected success, got error: %v", resp.Error)
	}
	if resp.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", resp.Attempts)
	}
	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}

	if got.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.Method)
	}
	headers := map[string]string{
		"Content-Type":  "application/json",
		"User-Agent":    "logtriage-webhook",
		RunIDHeader:     report.Metadata.RunID,
		"Authorization": "",
	}
	for name, want := range headers {
		if v := got.Header.Get(name); v != want {
			t.Errorf("header %s = %q, want %q", name, v, want)
		}
	}

	var payload output.Report
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("failed to parse received payload: %v", err)
	}
	if payload.Summary.SuspiciousIPs != 1 || payload.Traffic.SuspiciousIPs[0].Value != "45.133.1.11" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestReport(), SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}
	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}
}

func TestClient_Send_StatusOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		retries      int
		wantSuccess  bool
		wantStatus   int
		wantAttempts int
	}{
		{"created", []int{201}, 0, true, 201, 1},
		{"not modified is not delivery", []int{304}, 2, false, 304, 1},
		{"client error not retried", []int{400}, 2, false, 400, 1},
		{"server error without retries", []int{500}, 0, false, 500, 1},
		{"server error then success", []int{503, 502, 200}, 2, true, 200, 3},
		{"rate limited then success", []int{429, 204}, 1, true, 204, 2},
		{"retries exhausted", []int{500}, 2, false, 500, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := statusSequence(t, &calls, tt.statuses...)

			client := NewClient(WithRetryWait(time.Millisecond))
			resp := client.Send(context.Background(), newTestReport(), SendOptions{
				URL:     server.URL,
				Retries: tt.retries,
			})

			if resp.Success() != tt.wantSuccess {
				t.Errorf("Success() = %v, error %v", resp.Success(), resp.Error)
			}
			if !tt.wantSuccess && resp.Error == nil {
				t.Error("expected error to be set")
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if resp.Attempts != tt.wantAttempts || int(calls.Load()) != tt.wantAttempts {
				t.Errorf("Attempts = %d, server calls = %d, want %d", resp.Attempts, calls.Load(), tt.wantAttempts)
			}
		})
	}
}

func TestClient_Send_RetryStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	server := statusSequence(t, &calls, http.StatusServiceUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(WithRetryWait(time.Hour))

	done := make(chan *Response)
	go func() {
		done <- client.Send(ctx, newTestReport(), SendOptions{URL: server.URL, Retries: 3})
	}()

	// Let the first attempt land, then cancel during the backoff
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case resp := <-done:
		if resp.Success() || resp.Attempts != 1 {
			t.Errorf("resp = %+v", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after cancel")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestReport(), SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() || resp.Error == nil {
		t.Error("expected failure due to timeout")
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	resp := NewClient().Send(context.Background(), newTestReport(), SendOptions{
		URL:     "://invalid-url",
		Retries: 3,
	})

	if resp.Success() || resp.Error == nil {
		t.Error("expected failure for invalid URL")
	}
	if resp.Attempts != 1 {
		t.Errorf("invalid requests should not be retried, Attempts = %d", resp.Attempts)
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	client := NewClient(WithRetryWait(time.Millisecond))
	resp := client.Send(context.Background(), newTestReport(), SendOptions{
		URL:     "http://127.0.0.1:59999", // Unlikely to be listening
		Timeout: 100 * time.Millisecond,
		Retries: 1,
	})

	if resp.Success() || resp.Error == nil {
		t.Error("expected failure for connection refused")
	}
	if resp.Attempts != 2 {
		t.Errorf("transport errors should be retried, Attempts = %d", resp.Attempts)
	}
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	if c := NewClient(WithHTTPClient(hc)); c.httpClient != hc {
		t.Error("custom HTTP client not used")
	}
	if c := NewClient(WithHTTPClient(nil)); c.httpClient == nil {
		t.Error("nil HTTP client should keep the default")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}
