package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Manager selects a formatter by name and renders data with it.
type Manager struct {
	formatters    map[string]Formatter
	defaultFormat string
	config        *FormatConfig
}

// NewManager creates a new output manager with the json, yaml and table
// formatters.
func NewManager() *Manager {
	m := &Manager{
		formatters:    make(map[string]Formatter),
		defaultFormat: "table",
		config:        NewFormatConfig(),
	}

	m.RegisterFormatter(NewJSONFormatter())
	m.RegisterFormatter(NewYAMLFormatter())
	m.RegisterFormatter(NewTableFormatter())

	return m
}

// RegisterFormatter registers a new formatter.
func (m *Manager) RegisterFormatter(formatter Formatter) {
	m.formatters[formatter.Name()] = formatter
}

// GetFormatter returns a formatter by name.
func (m *Manager) GetFormatter(name string) (Formatter, error) {
	formatter, ok := m.formatters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported output format '%s' (supported: %s)", name, strings.Join(m.SupportedFormats(), ", "))
	}
	return formatter, nil
}

// SetDefaultFormat sets the format used when none is requested.
func (m *Manager) SetDefaultFormat(format string) {
	m.defaultFormat = format
}

// DefaultFormat returns the format used when none is requested.
func (m *Manager) DefaultFormat() string {
	return m.defaultFormat
}

// SetConfig sets the format configuration.
func (m *Manager) SetConfig(config *FormatConfig) {
	m.config = config
}

// Config returns the current format configuration.
func (m *Manager) Config() *FormatConfig {
	return m.config
}

// Format formats data using the named format and the manager's config.
func (m *Manager) Format(w io.Writer, data any, format string) error {
	return m.FormatWithConfig(w, data, format, m.config)
}

// FormatWithConfig formats data using the named format and config. The empty
// format selects the default.
func (m *Manager) FormatWithConfig(w io.Writer, data any, format string, config *FormatConfig) error {
	if format == "" {
		format = m.defaultFormat
	}

	formatter, err := m.GetFormatter(format)
	if err != nil {
		return err
	}
	if !formatter.Supports(data) {
		// Tables cannot show scalars or empty results; JSON can.
		if format == "table" {
			return m.formatters["json"].Format(w, data, config)
		}
		return fmt.Errorf("formatter '%s' does not support data type %T", format, data)
	}
	return formatter.Format(w, data, config)
}

// IsFormatSupported checks if a format is supported.
func (m *Manager) IsFormatSupported(format string) bool {
	_, ok := m.formatters[strings.ToLower(format)]
	return ok
}

// SupportedFormats returns the sorted names of all registered formatters.
func (m *Manager) SupportedFormats() []string {
	formats := make([]string, 0, len(m.formatters))
	for name := range m.formatters {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}
