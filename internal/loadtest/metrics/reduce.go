package metrics

import (
	"math"
	"slices"
	"sort"
	"time"
)

const (
	// MaxErrorSamples caps the number of distinct error messages in a Report.
	MaxErrorSamples = 10

	// UnknownError is reported for failed requests that carry no error text,
	// such as completed transactions with a non-2xx status.
	UnknownError = "Unknown error"
)

// Observation is the outcome of one request attempt.
//
// StatusCode and Elapsed are zero when the request failed at the transport
// layer; Error then holds the transport error text.
type Observation struct {
	StatusCode int
	Elapsed    time.Duration
	Success    bool
	Error      string
}

// Report is the latency, throughput and error portion of a run record.
// Response times are in seconds.
type Report struct {
	TotalRequests       int64    `json:"total_requests"`
	SuccessfulRequests  int64    `json:"successful_requests"`
	FailedRequests      int64    `json:"failed_requests"`
	AverageResponseTime float64  `json:"average_response_time"`
	MinResponseTime     float64  `json:"min_response_time"`
	MaxResponseTime     float64  `json:"max_response_time"`
	Percentile90        float64  `json:"percentile_90"`
	RequestsPerSecond   float64  `json:"requests_per_second"`
	Errors              []string `json:"errors,omitempty"`
}

// Reduce computes the final statistics for a run.
//
// Latency figures are computed over successful observations only and are all
// zero when no request succeeded. RequestsPerSecond counts every observation
// and is zero when end is not after start. Errors holds the distinct error
// messages of failed observations, sorted and capped at MaxErrorSamples; it
// is nil when nothing failed.
func Reduce(observations []Observation, start, end time.Time) Report {
	report := Report{TotalRequests: int64(len(observations))}

	times := make([]float64, 0, len(observations))
	distinct := make(map[string]struct{})

	for _, o := range observations {
		if o.Success {
			times = append(times, o.Elapsed.Seconds())
			continue
		}
		msg := o.Error
		if msg == "" {
			msg = UnknownError
		}
		distinct[msg] = struct{}{}
	}

	report.SuccessfulRequests = int64(len(times))
	report.FailedRequests = report.TotalRequests - report.SuccessfulRequests

	if len(times) > 0 {
		sort.Float64s(times)
		report.MinResponseTime = times[0]
		report.MaxResponseTime = times[len(times)-1]
		report.AverageResponseTime = clamp(mean(times), report.MinResponseTime, report.MaxResponseTime)
		report.Percentile90 = percentileSorted(times, 90)
	}

	if elapsed := end.Sub(start).Seconds(); elapsed > 0 {
		report.RequestsPerSecond = float64(report.TotalRequests) / elapsed
	}

	if report.FailedRequests > 0 {
		report.Errors = errorSamples(distinct)
	}

	return report
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. It returns 0 for an empty slice and
// does not modify values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// percentileSorted expects sorted, non-empty input.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	p = clamp(p, 0, 100)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)

	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// mean uses a running update so that a set of identical values averages to
// exactly that value.
func mean(values []float64) float64 {
	var m float64
	for i, v := range values {
		m += (v - m) / float64(i+1)
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func errorSamples(distinct map[string]struct{}) []string {
	errs := make([]string, 0, len(distinct))
	for msg := range distinct {
		errs = append(errs, msg)
	}
	sort.Strings(errs)
	if len(errs) > MaxErrorSamples {
		errs = errs[:MaxErrorSamples]
	}
	return errs
}
