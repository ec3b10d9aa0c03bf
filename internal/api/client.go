// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL points at a locally running service.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout bounds each request, including uploads.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxResponseSize caps decoded response bodies.
	DefaultMaxResponseSize int64 = 10 * 1024 * 1024

	// UserAgent is sent with every request.
	UserAgent = "alia-tui/1.0"

	// RequestIDHeader carries a per-call correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Client talks to the ALIA service. A Client is safe for concurrent use once
// configured; the With* methods are meant to be called before first use.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	maxResponseSize int64
	limiter         *rate.Limiter
	logger          *log.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		maxResponseSize: DefaultMaxResponseSize,
		logger:          log.New(io.Discard),
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the current value.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithMaxResponseSize caps response bodies at n bytes.
func (c *Client) WithMaxResponseSize(n int64) *Client {
	if n > 0 {
		c.maxResponseSize = n
	}
	return c
}

// WithRateLimit paces outgoing requests to rps per second. Zero or less
// disables pacing.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return c
}

// WithLogger sets the logger for request/response lines.
func (c *Client) WithLogger(logger *log.Logger) *Client {
	if logger != nil {
		c.logger = logger.WithPrefix("api")
	}
	return c
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON sends a JSON request (body may be nil) and decodes a 2xx response
// into out (out may be nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	data, err := c.send(op, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Message: "decode response", RequestID: req.Header.Get(RequestIDHeader), Err: err}
	}
	return nil
}

// send performs exactly one attempt and returns the size-capped body of a
// 2xx response. Any other outcome is an *Error.
func (c *Client) send(op string, req *http.Request) ([]byte, error) {
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("User-Agent", UserAgent)

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &Error{Op: op, Message: "request pacing", RequestID: requestID, Err: err}
		}
	}

	c.logger.Debug("request", "op", op, "method", req.Method, "path", req.URL.Path, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "request_id", requestID, "duration", time.Since(start), "err", err)
		return nil, &Error{Op: op, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	body, err := c.readResponse(resp)
	c.logger.Debug("response", "op", op, "status", resp.StatusCode, "request_id", requestID, "duration", time.Since(start))
	if err != nil {
		return nil, &Error{Op: op, Status: statusIfFailed(resp.StatusCode), RequestID: requestID, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("service error", "op", op, "status", resp.StatusCode, "request_id", requestID)
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: detailMessage(body), RequestID: requestID}
	}
	return body, nil
}

// readResponse reads the body, failing when it exceeds the configured cap.
func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", c.maxResponseSize)
	}
	return body, nil
}

func statusIfFailed(status int) int {
	if status < 200 || status > 299 {
		return status
	}
	return 0
}

// detailMessage extracts {"detail": ...} from an error body, falling back to
// a trimmed prefix of the raw text.
func detailMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Detail) > 0 {
		var s string
		if json.Unmarshal(eb.Detail, &s) == nil {
			return s
		}
		return string(eb.Detail)
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
