// Package config loads nftester settings files.
//
// A settings file describes one run plus the engine settings around it.
// YAML and JSON are both accepted; the format follows the file extension.
//
// Example:
//
//	kind: performance
//	variables:
//	  host: api.example.com
//	test:
//	  target_url: "https://{{host}}/health"
//	  concurrency: 20
//	  duration: 60
//	  headers:
//	    User-Agent: "PerformanceTester/1.0"
//	settings:
//	  timeout: 10s
//	  sampleInterval: 500ms
//	server:
//	  addr: ":8000"
package config

import (
	"time"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

// File is the root of a settings file.
type File struct {
	// Kind is "stress" or "performance" ("perf" is accepted)
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Variables are substituted into {{name}} placeholders of the target URL
	// and header values
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Test is the run configuration
	Test loadtest.TestConfig `json:"test" yaml:"test"`

	// Settings tune the engine
	Settings Settings `json:"settings,omitempty" yaml:"settings,omitempty"`

	// Server configures `nftester serve`
	Server ServerSettings `json:"server,omitempty" yaml:"server,omitempty"`
}

// Settings tune the HTTP client and the resource sampler.
type Settings struct {
	// Timeout bounds each request
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// SampleInterval is the resource sampling period
	SampleInterval Duration `json:"sampleInterval,omitempty" yaml:"sampleInterval,omitempty"`

	// MaxIdleConnsPerHost limits idle connections per host
	MaxIdleConnsPerHost int `json:"maxIdleConnsPerHost,omitempty" yaml:"maxIdleConnsPerHost,omitempty"`

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`

	// UserAgent is sent unless the test sets its own User-Agent header
	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
}

// ServerSettings configure the HTTP API.
type ServerSettings struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// HTTPClientConfig converts the settings into a client configuration.
func (s Settings) HTTPClientConfig() loadtest.HTTPClientConfig {
	cfg := loadtest.DefaultHTTPClientConfig()
	cfg.Timeout = s.Timeout.GetDuration(cfg.Timeout)
	if s.MaxIdleConnsPerHost > 0 {
		cfg.MaxIdleConnsPerHost = s.MaxIdleConnsPerHost
	}
	cfg.InsecureSkipVerify = s.InsecureSkipVerify
	return cfg
}

// Duration is a time.Duration written as a string ("30s", "2m") in files.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" {
		s = ""
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
