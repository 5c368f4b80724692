// Package client talks to a running nftester server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/store"
)

// ErrNotFound is returned when the server does not know a run ID.
var ErrNotFound = errors.New("test not found")

// DefaultBaseURL is the address of a locally running server.
const DefaultBaseURL = "http://localhost:8000"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the results API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// Option configures a Client
type Option func(*Client)

// New creates a client with the given options.
func New(options ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: DefaultBaseURL,
		headers: make(map[string]string),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// WithBaseURL sets the server address
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every call
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// ListResults returns every run known to the server, oldest first.
func (c *Client) ListResults(ctx context.Context) ([]loadtest.RunRecord, error) {
	var records []loadtest.RunRecord
	if err := c.do(ctx, NewRequest(http.MethodGet, "/test-results"), &records); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return records, nil
}

// GetResult returns one run.
func (c *Client) GetResult(ctx context.Context, id string) (loadtest.RunRecord, error) {
	var rec loadtest.RunRecord
	if err := c.do(ctx, NewRequest(http.MethodGet, "/test-results/"+id), &rec); err != nil {
		return loadtest.RunRecord{}, fmt.Errorf("failed to get result %s: %w", id, err)
	}
	return rec, nil
}

// ResourceStats returns the resource samples and summary of one run.
func (c *Client) ResourceStats(ctx context.Context, id string) (store.ResourceStats, error) {
	var stats store.ResourceStats
	if err := c.do(ctx, NewRequest(http.MethodGet, "/resource-stats/"+id), &stats); err != nil {
		return store.ResourceStats{}, fmt.Errorf("failed to get resource stats for %s: %w", id, err)
	}
	return stats, nil
}

// StartRun submits a run and returns its initial record.
func (c *Client) StartRun(ctx context.Context, kind loadtest.Kind, cfg loadtest.TestConfig) (loadtest.RunRecord, error) {
	var path string
	switch kind {
	case loadtest.KindStress:
		path = "/stress-test"
	case loadtest.KindPerformance:
		path = "/performance-test"
	default:
		return loadtest.RunRecord{}, fmt.Errorf("unknown run kind: %s", kind)
	}

	var rec loadtest.RunRecord
	if err := c.do(ctx, NewRequest(http.MethodPost, path).WithBody(cfg), &rec); err != nil {
		return loadtest.RunRecord{}, fmt.Errorf("failed to start %s run: %w", kind, err)
	}
	return rec, nil
}

// WaitCompleted polls a run every interval until it completes or ctx ends.
// onPoll, if non-nil, sees every intermediate record.
func (c *Client) WaitCompleted(ctx context.Context, id string, interval time.Duration, onPoll func(loadtest.RunRecord)) (loadtest.RunRecord, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rec, err := c.GetResult(ctx, id)
		if err != nil {
			return loadtest.RunRecord{}, err
		}
		if rec.IsCompleted() {
			return rec, nil
		}
		if onPoll != nil {
			onPoll(rec)
		}

		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, req *Request, out any) error {
	httpReq, err := req.Build(c.baseURL)
	if err != nil {
		return err
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "error" field of a JSON error body, with any
// validation details appended, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string                      `json:"error"`
		Details []*loadtest.ValidationError `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return strings.TrimSpace(string(body))
	}

	msg := payload.Error
	for _, d := range payload.Details {
		msg += fmt.Sprintf("; %s: %s", d.Field, d.Message)
	}
	return msg
}
