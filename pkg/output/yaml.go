package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Supports returns true for any data.
func (f *YAMLFormatter) Supports(data any) bool {
	return true
}

// Format writes data as YAML.
func (f *YAMLFormatter) Format(w io.Writer, data any, _ *FormatConfig) error {
	if data == nil {
		_, err := w.Write([]byte("null\n"))
		return err
	}

	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	encoder.SetIndent(2)

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
