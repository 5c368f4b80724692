package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
	"github.com/Otavio-CB/non-functional-tester/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_StartRun(t *testing.T) {
	var gotPath, gotContentType, gotHeader string
	var gotConfig loadtest.TestConfig

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("X-Client")
		_ = json.NewDecoder(r.Body).Decode(&gotConfig)
		writeJSON(w, http.StatusOK, loadtest.NewRunRecord(loadtest.KindPerformance, gotConfig, time.Now()))
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL), WithTimeout(5*time.Second), WithHeader("X-Client", "nftester"))
	cfg := loadtest.TestConfig{TargetURL: "https://example.com", Concurrency: 2, Duration: loadtest.Seconds(10)}

	rec, err := c.StartRun(context.Background(), loadtest.KindPerformance, cfg)
	require.NoError(t, err)

	assert.Equal(t, "/performance-test", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "nftester", gotHeader)
	assert.Equal(t, cfg.TargetURL, gotConfig.TargetURL)
	assert.Equal(t, loadtest.KindPerformance, rec.TestType)
	assert.Equal(t, loadtest.StatusRunning, rec.Status)
}

func TestClient_StartRunValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "invalid test configuration",
			"details": []*loadtest.ValidationError{
				{Field: "duration", Message: "duration is required for performance runs"},
			},
		})
	}))
	defer server.Close()

	_, err := New(WithBaseURL(server.URL)).StartRun(context.Background(), loadtest.KindPerformance, loadtest.TestConfig{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "duration: duration is required")
}

func TestClient_StartRunUnknownKind(t *testing.T) {
	_, err := New().StartRun(context.Background(), loadtest.Kind("soak"), loadtest.TestConfig{})
	assert.Error(t, err)
}

func TestClient_GetResultNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Test not found"})
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL))

	_, err := c.GetResult(context.Background(), "test_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.ResourceStats(context.Background(), "test_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_IDEscapedOnce(t *testing.T) {
	const id = "test_50% done"
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/test-results/"+id {
			writeJSON(w, http.StatusOK, loadtest.RunRecord{TestID: id})
			return
		}
		writeJSON(w, http.StatusOK, store.ResourceStats{})
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL))

	rec, err := c.GetResult(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.TestID)

	_, err = c.ResourceStats(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, []string{"/test-results/" + id, "/resource-stats/" + id}, paths)
}

func TestClient_ListAndResourceStats(t *testing.T) {
	rec := loadtest.NewRunRecord(loadtest.KindStress, loadtest.TestConfig{TargetURL: "https://example.com"}, time.Now())
	sample := resource.Sample{CPUPercent: 42}
	rec.AddSample(sample, resource.Summarize([]resource.Sample{sample}))

	mux := http.NewServeMux()
	mux.HandleFunc("/test-results", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []loadtest.RunRecord{rec})
	})
	mux.HandleFunc("/resource-stats/"+rec.TestID, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.ResourceStats{ResourceStats: rec.ResourceStats, ResourceMetrics: rec.ResourceMetrics})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(WithBaseURL(server.URL))

	list, err := c.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.TestID, list[0].TestID)

	stats, err := c.ResourceStats(context.Background(), rec.TestID)
	require.NoError(t, err)
	require.Len(t, stats.ResourceStats, 1)
	assert.Equal(t, 42.0, stats.ResourceMetrics.MaxCPU)
}

func TestClient_WaitCompleted(t *testing.T) {
	rec := loadtest.NewRunRecord(loadtest.KindStress, loadtest.TestConfig{}, time.Now())
	var polls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := rec.Clone()
		if polls.Add(1) >= 3 {
			current.Complete(metrics.Report{TotalRequests: 7, SuccessfulRequests: 7}, time.Now())
		}
		writeJSON(w, http.StatusOK, current)
	}))
	defer server.Close()

	var seen int
	final, err := New(WithBaseURL(server.URL)).WaitCompleted(context.Background(), rec.TestID, 5*time.Millisecond, func(loadtest.RunRecord) {
		seen++
	})
	require.NoError(t, err)

	assert.True(t, final.IsCompleted())
	assert.Equal(t, int64(7), final.TotalRequests)
	assert.Equal(t, 2, seen)
}

func TestClient_WaitCompletedContextCancel(t *testing.T) {
	rec := loadtest.NewRunRecord(loadtest.KindStress, loadtest.TestConfig{}, time.Now())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rec)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := New(WithBaseURL(server.URL)).WaitCompleted(ctx, rec.TestID, 5*time.Millisecond, nil)
	assert.Error(t, err)
}

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		want    string
	}{
		{"bare host", "http://localhost:8000", "/test-results", "http://localhost:8000/test-results"},
		{"base with path", "http://proxy/nftester/", "/test-results", "http://proxy/nftester/test-results"},
		{"relative path", "http://localhost:8000", "healthz", "http://localhost:8000/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(http.MethodGet, tt.path).Build(tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.URL.String())
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
		})
	}
}
