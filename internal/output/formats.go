package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an encoding for machine-readable results.
type Format string

const (
	// FormatJSON outputs indented JSON
	FormatJSON Format = "json"
	// FormatYAML outputs YAML with the same field names as JSON
	FormatYAML Format = "yaml"
)

// ParseFormat parses "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected json or yaml)", s)
	}
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes v to w in the given format.
func Encode(w io.Writer, format Format, v any) error {
	data, err := Marshal(format, v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal encodes v in the given format.
//
// YAML output goes through JSON first so that field names and omitempty
// rules match the API.
func Marshal(format Format, v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	switch format {
	case FormatJSON:
		return append(data, '\n'), nil
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("failed to convert result to YAML: %w", err)
		}
		blockStyle(&node)
		out, err := yaml.Marshal(&node)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result as YAML: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteFile writes v to path, choosing the format from the extension.
func WriteFile(path string, v any) error {
	data, err := Marshal(FormatForPath(path), v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// blockStyle clears the flow style that JSON input leaves on every node.
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, child := range n.Content {
		blockStyle(child)
	}
}
