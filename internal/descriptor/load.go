package descriptor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a descriptor file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported descriptor format %q", filepath.Ext(path))
	}
}

// DecodeError wraps a syntax error in a descriptor file.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Parse decodes and validates descriptor content.
func Parse(data []byte, format Format) (Descriptor, error) {
	return parse(data, format, string(format)+" content")
}

// LoadString parses TOML descriptor content held in memory.
func LoadString(content string) (Descriptor, error) {
	return Parse([]byte(content), FormatTOML)
}

// LoadFile reads and validates the descriptor at path.
func LoadFile(path string) (Descriptor, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Descriptor{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}
	d, err := parse(data, format, path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func parse(data []byte, format Format, source string) (Descriptor, error) {
	raw := map[string]any{}
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return Descriptor{}, &DecodeError{Source: source, Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Descriptor{}, &DecodeError{Source: source, Err: err}
		}
	default:
		return Descriptor{}, fmt.Errorf("unsupported descriptor format %q", format)
	}
	return FromMap(raw)
}
