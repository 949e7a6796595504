// Package webhook delivers submitted invoices to the externally configured
// endpoint. Delivery is a single attempt.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed reply is kept for diagnostics.
const maxErrorBody = 512

// ErrInvalidEndpoint is returned for URLs that cannot be posted to.
var ErrInvalidEndpoint = errors.New("webhook: invalid endpoint")

// StatusError reports a reply outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Response describes a delivered request.
type Response struct {
	StatusCode int
	Duration   time.Duration
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts JSON payloads.
type Client struct {
	http   Doer
	logger *slog.Logger
	now    func() time.Time
}

// NewClient builds a Client. A zero timeout leaves requests unbounded.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return NewClientWithDoer(&http.Client{Timeout: timeout}, logger)
}

// NewClientWithDoer builds a Client on a caller-supplied transport.
func NewClientWithDoer(doer Doer, logger *slog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: doer, logger: logger, now: time.Now}
}

// Post sends payload as JSON to endpoint exactly once.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (Response, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	duration := c.now().Sub(start)
	if err != nil {
		c.logger.WarnContext(ctx, "webhook request failed", "host", req.URL.Host, "duration", duration, "error", err)
		return Response{Duration: duration}, fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	out := Response{StatusCode: resp.StatusCode, Duration: duration}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "webhook rejected payload", "host", req.URL.Host, "status", resp.StatusCode, "duration", duration)
		return out, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	c.logger.InfoContext(ctx, "webhook delivered", "host", req.URL.Host, "status", resp.StatusCode, "bytes", len(body), "duration", duration)
	return out, nil
}

func validateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidEndpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return nil
}
