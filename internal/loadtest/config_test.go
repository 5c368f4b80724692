package loadtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		config    TestConfig
		wantErr   bool
		wantField string
	}{
		{
			name:   "valid stress config",
			kind:   KindStress,
			config: TestConfig{TargetURL: "https://example.com", Requests: 100, Concurrency: 10},
		},
		{
			name:   "valid performance config",
			kind:   KindPerformance,
			config: TestConfig{TargetURL: "http://localhost:8080/health", Concurrency: 3, Duration: Seconds(5)},
		},
		{
			name:      "missing URL",
			kind:      KindStress,
			config:    TestConfig{Requests: 1, Concurrency: 1},
			wantErr:   true,
			wantField: "target_url",
		},
		{
			name:      "relative URL",
			kind:      KindStress,
			config:    TestConfig{TargetURL: "/health", Requests: 1, Concurrency: 1},
			wantErr:   true,
			wantField: "target_url",
		},
		{
			name:      "unsupported scheme",
			kind:      KindStress,
			config:    TestConfig{TargetURL: "ftp://example.com", Requests: 1, Concurrency: 1},
			wantErr:   true,
			wantField: "target_url",
		},
		{
			name:      "duration overflows time.Duration",
			kind:      KindPerformance,
			config:    TestConfig{TargetURL: "http://localhost:8080", Concurrency: 1, Duration: Seconds(10_000_000_000)},
			wantErr:   true,
			wantField: "duration",
		},
		{
			name:   "longest representable duration",
			kind:   KindPerformance,
			config: TestConfig{TargetURL: "http://localhost:8080", Concurrency: 1, Duration: Seconds(int(MaxDurationSeconds))},
		},
		{
			name:      "zero requests for stress",
			kind:      KindStress,
			config:    TestConfig{TargetURL: "https://example.com", Requests: 0, Concurrency: 1},
			wantErr:   true,
			wantField: "requests",
		},
		{
			name:   "zero requests is fine for performance",
			kind:   KindPerformance,
			config: TestConfig{TargetURL: "https://example.com", Concurrency: 1, Duration: Seconds(1)},
		},
		{
			name:      "negative requests for performance",
			kind:      KindPerformance,
			config:    TestConfig{TargetURL: "https://example.com", Requests: -1, Concurrency: 1, Duration: Seconds(1)},
			wantErr:   true,
			wantField: "requests",
		},
		{
			name:      "zero concurrency",
			kind:      KindStress,
			config:    TestConfig{TargetURL: "https://example.com", Requests: 10},
			wantErr:   true,
			wantField: "concurrency",
		},
		{
			name:      "performance without duration",
			kind:      KindPerformance,
			config:    TestConfig{TargetURL: "https://example.com", Concurrency: 1},
			wantErr:   true,
			wantField: "duration",
		},
		{
			name:      "zero duration",
			kind:      KindPerformance,
			config:    TestConfig{TargetURL: "https://example.com", Concurrency: 1, Duration: Seconds(0)},
			wantErr:   true,
			wantField: "duration",
		},
		{
			name:      "negative duration on stress",
			kind:      KindStress,
			config:    TestConfig{TargetURL: "https://example.com", Requests: 1, Concurrency: 1, Duration: Seconds(-3)},
			wantErr:   true,
			wantField: "duration",
		},
		{
			name:      "unknown kind",
			kind:      Kind("soak"),
			config:    TestConfig{TargetURL: "https://example.com", Requests: 1, Concurrency: 1},
			wantErr:   true,
			wantField: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate(tt.kind)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.True(t, verrs.HasField(tt.wantField), "expected error on %s, got %v", tt.wantField, err)
		})
	}
}

func TestTestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := TestConfig{}
	err := cfg.Validate(KindPerformance)

	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Errors, 3)
	assert.Contains(t, err.Error(), "3 validation errors")
}

func TestApplyDefaults(t *testing.T) {
	cfg := TestConfig{TargetURL: "https://example.com"}
	ApplyDefaults(&cfg)

	assert.Equal(t, DefaultRequests, cfg.Requests)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Nil(t, cfg.Duration)

	custom := TestConfig{Requests: 7, Concurrency: 2}
	ApplyDefaults(&custom)
	assert.Equal(t, 7, custom.Requests)
	assert.Equal(t, 2, custom.Concurrency)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"stress", KindStress, false},
		{"Performance", KindPerformance, false},
		{"perf", KindPerformance, false},
		{" stress ", KindStress, false},
		{"soak", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestConfig_CloneIsDeep(t *testing.T) {
	cfg := TestConfig{
		TargetURL: "https://example.com",
		Duration:  Seconds(5),
		Headers:   map[string]string{"X-Test": "1"},
	}

	clone := cfg.Clone()
	*clone.Duration = 10
	clone.Headers["X-Test"] = "2"

	assert.Equal(t, 5, *cfg.Duration)
	assert.Equal(t, "1", cfg.Headers["X-Test"])
	assert.Equal(t, 5*time.Second, cfg.RunDuration())
}
