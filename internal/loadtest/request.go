package loadtest

import (
	"context"
	"crypto/tls"
	"io"
	"maps"
	"net/http"
	"time"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
)

// HTTPClientConfig contains HTTP client configuration.
type HTTPClientConfig struct {
	// Timeout bounds each individual request
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle connections
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections per host
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits the total connections per host
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept alive
	IdleConnTimeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool
}

// DefaultHTTPClientConfig returns sensible defaults for load testing.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     0, // Unlimited
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPClient creates the pooled client shared by every request of a run.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// RequestExecutor issues GET requests against one target and converts each
// outcome into an Observation.
//
// Execute never returns an error: transport failures, timeouts and non-2xx
// responses all become failed observations.
type RequestExecutor struct {
	client  *http.Client
	url     string
	headers map[string]string
}

// NewRequestExecutor creates an executor for url using client.
func NewRequestExecutor(client *http.Client, url string, headers map[string]string) *RequestExecutor {
	return &RequestExecutor{
		client:  client,
		url:     url,
		headers: maps.Clone(headers),
	}
}

// Execute issues one request.
func (e *RequestExecutor) Execute(ctx context.Context) metrics.Observation {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return metrics.Observation{Error: err.Error()}
	}
	for key, value := range e.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return metrics.Observation{Error: err.Error()}
	}
	defer resp.Body.Close()

	// Drain so the connection returns to the pool; the transaction is timed
	// to the end of the body.
	_, readErr := io.Copy(io.Discard, resp.Body)
	elapsed := time.Since(start)

	if readErr != nil {
		return metrics.Observation{StatusCode: resp.StatusCode, Error: readErr.Error()}
	}

	return metrics.Observation{
		StatusCode: resp.StatusCode,
		Elapsed:    elapsed,
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
}
