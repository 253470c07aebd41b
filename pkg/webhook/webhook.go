// Package webhook delivers analysis reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/ccollicutt/logtriage/pkg/output"
)

const (
	// DefaultTimeout bounds a single delivery attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultRetryWait is the pause before the first retry. Later retries
	// wait proportionally longer.
	DefaultRetryWait = time.Second

	// RunIDHeader carries the report's run ID so receivers can dedupe retries.
	RunIDHeader = "X-Logtriage-Run-Id"

	userAgent       = "logtriage-webhook"
	maxResponseBody = 1 << 20
)

// Client posts reports as JSON.
type Client struct {
	httpClient *http.Client
	retryWait  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryWait sets the pause before the first retry.
func WithRetryWait(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.retryWait = d
		}
	}
}

// NewClient creates a webhook client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		retryWait:  DefaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOptions configures one delivery.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Per attempt; DefaultTimeout if zero
	Retries int           // Extra attempts after a retryable failure
}

// Response describes the final attempt of a delivery.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Attempts   int
	Error      error

	// permanent marks failures no retry can fix, such as a malformed URL.
	permanent bool
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// retryable reports whether another attempt could succeed: transport
// errors, 429 and 5xx.
func (r *Response) retryable() bool {
	if r.permanent {
		return false
	}
	if r.StatusCode == 0 {
		return r.Error != nil
	}
	return r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500
}

// Send posts the report, retrying up to opts.Retries times. Failures are
// reported in Response.Error; Send never returns nil.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()

	payload, err := json.Marshal(report)
	if err != nil {
		return &Response{
			Error:    fmt.Errorf("failed to marshal report: %w", err),
			Duration: time.Since(start),
		}
	}

	var resp *Response
	for attempt := 1; ; attempt++ {
		resp = c.post(ctx, payload, report.Metadata.RunID, opts)
		resp.Attempts = attempt
		if resp.Success() || !resp.retryable() || attempt > opts.Retries {
			break
		}
		if err := c.wait(ctx, attempt); err != nil {
			resp.Error = fmt.Errorf("giving up after %d attempts: %w", attempt, err)
			break
		}
	}
	resp.Duration = time.Since(start)
	return resp
}

// wait sleeps before retry n, or returns early when ctx is done.
func (c *Client) wait(ctx context.Context, n int) error {
	t := time.NewTimer(time.Duration(n) * c.retryWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// post performs a single delivery attempt.
func (c *Client) post(ctx context.Context, payload []byte, runID string, opts SendOptions) *Response {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return &Response{Error: fmt.Errorf("failed to create request: %w", err), permanent: true}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if runID != "" {
		req.Header.Set(RunIDHeader, runID)
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &Response{Error: fmt.Errorf("request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	resp := &Response{StatusCode: httpResp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		return resp
	}
	resp.Body = string(body)

	if !resp.Success() {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp
}
