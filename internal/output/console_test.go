package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/dispatch"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{500 * time.Millisecond, "500ms"},
		{1 * time.Second, "1.0s"},
		{1*time.Minute + 30*time.Second, "1m 30s"},
		{1*time.Hour + 2*time.Minute + 3*time.Second, "1h 02m 03s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDuration(tt.duration))
		})
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{0, "0ms"},
		{500 * time.Microsecond, "500µs"},
		{50 * time.Millisecond, "50ms"},
		{1500 * time.Millisecond, "1.50s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDurationShort(tt.duration))
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "250ms", formatSeconds(0.25))
	assert.Equal(t, "0ms", formatSeconds(0))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		number   int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatNumber(tt.number))
		})
	}
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, "[░░░░]", renderProgressBar(0, 4))
	assert.Equal(t, "[██░░]", renderProgressBar(0.5, 4))
	assert.Equal(t, "[████]", renderProgressBar(1.7, 4))
	assert.Equal(t, "[░░░░]", renderProgressBar(-1, 4))
}

func TestProgressFrom(t *testing.T) {
	p := ProgressFrom(
		dispatch.Stats{State: dispatch.StateRunning, Batches: 3, Elapsed: 2 * time.Second, Progress: 0.25},
		metrics.LiveStats{Requests: 30, Failed: 2, RPS: 15, P50: 10 * time.Millisecond, P95: 40 * time.Millisecond},
	)

	assert.Equal(t, int64(3), p.Batches)
	assert.Equal(t, int64(30), p.Requests)
	assert.Equal(t, int64(2), p.Failed)
	assert.Equal(t, 6*time.Second, p.Remaining)
	assert.Equal(t, 40*time.Millisecond, p.P95)

	done := ProgressFrom(dispatch.Stats{Elapsed: time.Second, Progress: 1}, metrics.LiveStats{})
	assert.Zero(t, done.Remaining)
}

func TestConsole_UpdateOnlyOnTTY(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf})
	assert.False(t, c.IsTTY())

	c.Update(Progress{Progress: 0.5, Requests: 10})
	assert.Empty(t, buf.String())

	c.PrintNonInteractiveUpdate(Progress{Progress: 0.5, Requests: 10, P95: 20 * time.Millisecond})
	assert.Contains(t, buf.String(), "Progress: 50%")
	assert.Contains(t, buf.String(), "Reqs: 10")
	assert.Contains(t, buf.String(), "P95: 20ms")
}

func TestConsole_LiveLineIsRedrawn(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, ForceTTY: true, NoColor: true})

	c.Update(Progress{Progress: 0.1, Requests: 1})
	c.Update(Progress{Progress: 0.2, Requests: 2})

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, clearLine))
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "reqs 2")
}

func TestConsole_Quiet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, Quiet: true, ForceTTY: true})

	c.PrintHeader(loadtest.KindStress, loadtest.TestConfig{TargetURL: "http://x"})
	c.Update(Progress{Progress: 0.5})
	c.PrintNonInteractiveUpdate(Progress{})
	assert.Empty(t, buf.String())

	c.PrintSummary(loadtest.RunRecord{TestID: "test_1", TotalRequests: 4, SuccessfulRequests: 3})
	assert.Equal(t, "test_1 3/4 successful\n", buf.String())
}

func TestConsole_PrintHeader(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, NoColor: true})

	c.PrintHeader(loadtest.KindPerformance, loadtest.TestConfig{
		TargetURL:   "http://example.test/health",
		Concurrency: 4,
		Duration:    loadtest.Seconds(90),
	})

	out := buf.String()
	assert.Contains(t, out, "Performance test http://example.test/health")
	assert.Contains(t, out, "Duration:      1m 30s")
	assert.Contains(t, out, "Concurrency:   4")
}

func completedRecord() loadtest.RunRecord {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	return loadtest.RunRecord{
		TestID:              "test_abc",
		TestType:            loadtest.KindStress,
		StartTime:           start,
		EndTime:             &end,
		Status:              loadtest.StatusCompleted,
		TotalRequests:       1200,
		SuccessfulRequests:  1198,
		FailedRequests:      2,
		AverageResponseTime: 0.012,
		MinResponseTime:     0.002,
		MaxResponseTime:     0.3,
		Percentile90:        0.025,
		RequestsPerSecond:   600,
		Errors:              []string{"Unknown error"},
		ResourceStats:       []resource.Sample{{CPUPercent: 40, MemoryUsedMB: 512}},
		ResourceMetrics:     resource.Summary{MaxCPU: 40, AvgCPU: 40, MaxMemory: 512, AvgMemory: 512},
		Config:              loadtest.TestConfig{TargetURL: "http://example.test", Requests: 1200, Concurrency: 10},
	}
}

func TestConsole_PrintSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, NoColor: true})

	c.PrintSummary(completedRecord())

	out := buf.String()
	assert.Contains(t, out, "Stress test test_abc - Completed ✗")
	assert.Contains(t, out, "Target:        http://example.test")
	assert.Contains(t, out, "Duration:      2.0s")
	assert.Contains(t, out, "Total Reqs:    1,200")
	assert.Contains(t, out, "Success Rate:  99.8%")
	assert.Contains(t, out, "Throughput:    600.00 req/s")
	assert.Contains(t, out, "P90:       25ms")
	assert.Contains(t, out, "Max:       300ms")
	assert.Contains(t, out, "CPU:       max 40.0%  avg 40.0%")
	assert.Contains(t, out, "Memory:    max 512 MB  avg 512 MB")
	assert.Contains(t, out, "✗ Unknown error")
	assert.NotContains(t, out, "\033[")
}

func TestConsole_PrintSummaryClearsLiveLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, ForceTTY: true, NoColor: true})

	c.Update(Progress{Progress: 1})
	buf.Reset()

	c.PrintSummary(completedRecord())
	assert.True(t, strings.HasPrefix(buf.String(), clearLine))
}

func TestConsole_PrintResults(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, NoColor: true})

	c.PrintResults(nil)
	assert.Equal(t, "No test results.\n", buf.String())

	buf.Reset()
	c.PrintResults([]loadtest.RunRecord{completedRecord()})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "test_abc")
	assert.Contains(t, lines[1], "completed")
	assert.Contains(t, lines[1], "600.00")
}
