package loadtest

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
)

// Status is the externally visible lifecycle status of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// RunRecord is the externally visible state of one run.
//
// A record is owned by its dispatcher while the run is in progress and is
// frozen once Status becomes StatusCompleted. Values handed to callers are
// clones; mutating them never affects the run.
type RunRecord struct {
	TestID    string     `json:"test_id"`
	TestType  Kind       `json:"test_type"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    Status     `json:"status"`

	TotalRequests       int64    `json:"total_requests"`
	SuccessfulRequests  int64    `json:"successful_requests"`
	FailedRequests      int64    `json:"failed_requests"`
	AverageResponseTime float64  `json:"average_response_time"`
	MinResponseTime     float64  `json:"min_response_time"`
	MaxResponseTime     float64  `json:"max_response_time"`
	Percentile90        float64  `json:"percentile_90"`
	RequestsPerSecond   float64  `json:"requests_per_second"`
	Errors              []string `json:"errors"`

	ResourceStats   []resource.Sample `json:"resource_stats"`
	ResourceMetrics resource.Summary  `json:"resource_metrics"`

	Config TestConfig `json:"config"`
}

// NewRunID returns a unique run identifier. The UUIDv7 suffix embeds the
// creation time, so identifiers sort by creation order.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "test_" + id.String()
}

// NewRunRecord creates a running record with zero counters.
func NewRunRecord(kind Kind, cfg TestConfig, created time.Time) RunRecord {
	return RunRecord{
		TestID:        NewRunID(),
		TestType:      kind,
		StartTime:     created,
		Status:        StatusRunning,
		ResourceStats: make([]resource.Sample, 0),
		Config:        cfg.Clone(),
	}
}

// IsCompleted reports whether the run has reached its terminal status.
func (r *RunRecord) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// AddObservations folds a batch of observations into the request counters.
func (r *RunRecord) AddObservations(batch []metrics.Observation) {
	for _, o := range batch {
		r.TotalRequests++
		if o.Success {
			r.SuccessfulRequests++
		} else {
			r.FailedRequests++
		}
	}
}

// AddSample appends a resource sample and replaces the summary.
func (r *RunRecord) AddSample(sample resource.Sample, summary resource.Summary) {
	r.ResourceStats = append(r.ResourceStats, sample)
	r.ResourceMetrics = summary
}

// Complete applies the final report and moves the record to
// StatusCompleted. It reports false, leaving the record untouched, if the
// record was already completed.
func (r *RunRecord) Complete(report metrics.Report, end time.Time) bool {
	if r.IsCompleted() {
		return false
	}

	r.TotalRequests = report.TotalRequests
	r.SuccessfulRequests = report.SuccessfulRequests
	r.FailedRequests = report.FailedRequests
	r.AverageResponseTime = report.AverageResponseTime
	r.MinResponseTime = report.MinResponseTime
	r.MaxResponseTime = report.MaxResponseTime
	r.Percentile90 = report.Percentile90
	r.RequestsPerSecond = report.RequestsPerSecond
	r.Errors = slices.Clone(report.Errors)
	r.EndTime = &end
	r.Status = StatusCompleted
	return true
}

// Duration returns the run's wall-clock duration, or 0 while running.
func (r *RunRecord) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Clone returns a deep copy of r.
func (r RunRecord) Clone() RunRecord {
	out := r
	if r.EndTime != nil {
		end := *r.EndTime
		out.EndTime = &end
	}
	out.Errors = slices.Clone(r.Errors)
	out.ResourceStats = slices.Clone(r.ResourceStats)
	if out.ResourceStats == nil {
		out.ResourceStats = make([]resource.Sample, 0)
	}
	out.Config = r.Config.Clone()
	return out
}
