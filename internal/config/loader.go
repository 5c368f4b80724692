package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

// DefaultUserAgent is sent when neither the test nor the settings set one.
const DefaultUserAgent = "PerformanceTester/1.0"

// Load reads and parses a settings file, resolves variables and applies
// defaults. The result is not validated; call Validate.
func Load(path string) (*File, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}

	f.ResolveVariables()
	ApplyDefaults(f)
	return f, nil
}

// Read reads and parses a settings file without resolving variables or
// applying defaults, so callers can merge overrides first.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses settings data.
//
// The format is determined by the file extension in path, or defaults to YAML
// if the path is empty or has an unknown extension.
func Parse(data []byte, path string) (*File, error) {
	var f File

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &f, nil
}

// ParseDurationString parses a duration string with support for common formats.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	var seconds int
	if _, err := fmt.Sscanf(s, "%d", &seconds); err == nil && fmt.Sprint(seconds) == s {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// ResolveVariables replaces {{name}} placeholders in the target URL and
// header values with entries of f.Variables. Unresolved placeholders are
// left as-is.
func (f *File) ResolveVariables() {
	if len(f.Variables) == 0 {
		return
	}

	f.Test.TargetURL = resolve(f.Test.TargetURL, f.Variables)
	for key, value := range f.Test.Headers {
		f.Test.Headers[key] = resolve(value, f.Variables)
	}
}

func resolve(input string, vars map[string]string) string {
	result := input
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// ApplyDefaults fills unset fields of f.
func ApplyDefaults(f *File) {
	loadtest.ApplyDefaults(&f.Test)

	if f.Settings.UserAgent == "" {
		f.Settings.UserAgent = DefaultUserAgent
	}
	if !hasHeader(f.Test.Headers, "User-Agent") {
		if f.Test.Headers == nil {
			f.Test.Headers = make(map[string]string)
		}
		f.Test.Headers["User-Agent"] = f.Settings.UserAgent
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for key := range headers {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
