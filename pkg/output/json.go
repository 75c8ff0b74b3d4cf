package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter formats output as JSON with optional pretty printing.
type JSONFormatter struct {
	indent string
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{indent: "  "}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Supports returns true for any data.
func (f *JSONFormatter) Supports(data any) bool {
	return true
}

// Format writes data as JSON followed by a newline.
func (f *JSONFormatter) Format(w io.Writer, data any, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if config.Pretty {
		encoder.SetIndent("", f.indent)
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
