package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
kind: perf
variables:
  host: api.example.com
  token: abc123
test:
  target_url: "https://{{host}}/health"
  concurrency: 20
  duration: 60
  headers:
    Authorization: "Bearer {{token}}"
settings:
  timeout: 10s
  sampleInterval: 500ms
  maxIdleConnsPerHost: 50
  insecureSkipVerify: true
server:
  addr: ":9000"
`)

	f, err := Load(path)
	require.NoError(t, err)

	kind, err := f.RunKind(loadtest.KindStress)
	require.NoError(t, err)
	assert.Equal(t, loadtest.KindPerformance, kind)

	assert.Equal(t, "https://api.example.com/health", f.Test.TargetURL)
	assert.Equal(t, "Bearer abc123", f.Test.Headers["Authorization"])
	assert.Equal(t, DefaultUserAgent, f.Test.Headers["User-Agent"])
	assert.Equal(t, 20, f.Test.Concurrency)
	assert.Equal(t, loadtest.DefaultRequests, f.Test.Requests)
	require.NotNil(t, f.Test.Duration)
	assert.Equal(t, 60, *f.Test.Duration)

	assert.Equal(t, 10*time.Second, time.Duration(f.Settings.Timeout))
	assert.Equal(t, 500*time.Millisecond, time.Duration(f.Settings.SampleInterval))
	assert.Equal(t, ":9000", f.Server.Addr)

	hc := f.Settings.HTTPClientConfig()
	assert.Equal(t, 10*time.Second, hc.Timeout)
	assert.Equal(t, 50, hc.MaxIdleConnsPerHost)
	assert.True(t, hc.InsecureSkipVerify)

	assert.NoError(t, f.Validate(kind))
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "run.json", `{
		"kind": "stress",
		"test": {
			"target_url": "http://localhost:8080/",
			"requests": 500,
			"concurrency": 25,
			"headers": {"user-agent": "custom/1.0"}
		},
		"settings": {"timeout": "2s", "sampleInterval": 1}
	}`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, f.Test.Requests)
	assert.Equal(t, 25, f.Test.Concurrency)
	assert.Nil(t, f.Test.Duration)
	assert.Equal(t, 2*time.Second, time.Duration(f.Settings.Timeout))
	assert.Equal(t, time.Second, time.Duration(f.Settings.SampleInterval))
	assert.Equal(t, "custom/1.0", f.Test.Headers["user-agent"])
	assert.NotContains(t, f.Test.Headers, "User-Agent", "an existing user agent header is kept")

	assert.NoError(t, f.Validate(loadtest.KindStress))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := writeFile(t, "bad.json", `{"test": `)
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse JSON config")

	badDuration := writeFile(t, "dur.yaml", "settings:\n  timeout: soon\n")
	_, err = Load(badDuration)
	assert.ErrorContains(t, err, "invalid duration format")
}

func TestParse_UnknownExtensionFallsBackToYAML(t *testing.T) {
	f, err := Parse([]byte("test:\n  target_url: https://example.com\n"), "run.conf")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", f.Test.TargetURL)
}

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"standard seconds", "30s", 30 * time.Second, false},
		{"milliseconds", "500ms", 500 * time.Millisecond, false},
		{"combined duration", "1h30m", 90 * time.Minute, false},
		{"integer as seconds", "30", 30 * time.Second, false},
		{"empty string", "", 0, false},
		{"invalid format", "abc", 0, true},
		{"trailing garbage", "30x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(data))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)

	require.NoError(t, back.UnmarshalJSON([]byte("null")))
	assert.Zero(t, back)
}

func TestFile_Validate(t *testing.T) {
	f := &File{
		Test:     loadtest.TestConfig{TargetURL: "not a url", Concurrency: 1},
		Settings: Settings{Timeout: Duration(-time.Second)},
	}

	err := f.Validate(loadtest.KindPerformance)
	var verrs *loadtest.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	assert.True(t, verrs.HasField("settings.timeout"))
	assert.True(t, verrs.HasField("test.target_url"))
	assert.True(t, verrs.HasField("test.duration"))
}

func TestFile_RunKind(t *testing.T) {
	f := &File{}
	kind, err := f.RunKind(loadtest.KindStress)
	require.NoError(t, err)
	assert.Equal(t, loadtest.KindStress, kind)

	f.Kind = "soak"
	_, err = f.RunKind(loadtest.KindStress)
	assert.Error(t, err)
}

func TestFile_ValidateSettings(t *testing.T) {
	f := &File{Test: loadtest.TestConfig{TargetURL: "not a url"}}
	assert.NoError(t, f.ValidateSettings())

	f.Settings.SampleInterval = Duration(-time.Second)
	f.Settings.MaxIdleConnsPerHost = -1
	err := f.ValidateSettings()

	var verrs *loadtest.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Errors, 2)
	assert.True(t, verrs.HasField("settings.sampleInterval"))
	assert.False(t, verrs.HasField("test.target_url"))
}
