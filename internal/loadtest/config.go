// Package loadtest holds the data model shared by the load-generation engine:
// the test configuration, the run record and the single-request executor.
package loadtest

import (
	"fmt"
	"maps"
	"math"
	"net/url"
	"strings"
	"time"
)

// Kind identifies the dispatch strategy of a run.
type Kind string

const (
	// KindStress sends a fixed total number of requests.
	KindStress Kind = "stress"

	// KindPerformance sends requests for a fixed wall-clock duration.
	KindPerformance Kind = "performance"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindStress || k == KindPerformance
}

// ParseKind parses a kind name. "perf" is accepted for performance.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindStress):
		return KindStress, nil
	case string(KindPerformance), "perf":
		return KindPerformance, nil
	default:
		return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown run kind: %q", s)}
	}
}

// Defaults applied by input layers when a field is left unset.
const (
	DefaultRequests    = 100
	DefaultConcurrency = 10
)

// MaxDurationSeconds is the longest duration whose time.Duration form does
// not overflow.
const MaxDurationSeconds = math.MaxInt64 / int64(time.Second)

// TestConfig is the caller-supplied configuration of a run.
//
// Example YAML:
//
//	target_url: "https://api.example.com/health"
//	requests: 500
//	concurrency: 20
//	headers:
//	  User-Agent: "PerformanceTester/1.0"
type TestConfig struct {
	// TargetURL is the endpoint every request is sent to (GET)
	TargetURL string `json:"target_url" yaml:"target_url"`

	// Requests is the total request count (stress runs only)
	Requests int `json:"requests" yaml:"requests"`

	// Concurrency is the maximum number of in-flight requests per batch
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Duration in seconds (performance runs only). Nil means absent.
	Duration *int `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Headers are sent with every request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Payload is reserved; the GET executor does not send it
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Seconds returns a pointer to n, for use as TestConfig.Duration.
func Seconds(n int) *int {
	return &n
}

// ApplyDefaults fills unset request and concurrency counts.
func ApplyDefaults(cfg *TestConfig) {
	if cfg.Requests == 0 {
		cfg.Requests = DefaultRequests
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
}

// RunDuration returns the configured duration, or 0 when absent.
func (c *TestConfig) RunDuration() time.Duration {
	if c.Duration == nil {
		return 0
	}
	return time.Duration(*c.Duration) * time.Second
}

// Clone returns a deep copy of c.
func (c TestConfig) Clone() TestConfig {
	out := c
	if c.Duration != nil {
		out.Duration = Seconds(*c.Duration)
	}
	out.Headers = maps.Clone(c.Headers)
	out.Payload = maps.Clone(c.Payload)
	return out
}

// Validate checks c for a run of the given kind.
//
// Returns nil if valid, or a *ValidationErrors containing every problem found.
func (c *TestConfig) Validate(kind Kind) error {
	errs := &ValidationErrors{}

	if !kind.Valid() {
		errs.Add("kind", fmt.Sprintf("unknown run kind: %q", kind))
	}

	validateTargetURL(c.TargetURL, errs)

	if c.Concurrency < 1 {
		errs.Add("concurrency", "concurrency must be >= 1")
	}

	if kind == KindStress && c.Requests < 1 {
		errs.Add("requests", "requests must be >= 1")
	} else if c.Requests < 0 {
		errs.Add("requests", "requests must not be negative")
	}

	if c.Duration != nil && *c.Duration <= 0 {
		errs.Add("duration", "duration must be > 0")
	} else if c.Duration != nil && int64(*c.Duration) > MaxDurationSeconds {
		errs.Add("duration", fmt.Sprintf("duration must be <= %d seconds", MaxDurationSeconds))
	} else if c.Duration == nil && kind == KindPerformance {
		errs.Add("duration", "duration is required for performance runs")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateTargetURL(raw string, errs *ValidationErrors) {
	if strings.TrimSpace(raw) == "" {
		errs.Add("target_url", "target_url is required")
		return
	}

	u, err := url.Parse(raw)
	if err != nil {
		errs.Add("target_url", fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("target_url", "URL scheme must be http or https")
		return
	}
	if u.Host == "" {
		errs.Add("target_url", "URL must include a host")
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasField reports whether any error concerns field.
func (e *ValidationErrors) HasField(field string) bool {
	for _, err := range e.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
