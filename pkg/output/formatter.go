// Package output renders the results of built-in commands as JSON, YAML or
// a pterm table.
package output

import "io"

// Formatter writes data in one output format.
type Formatter interface {
	// Format writes data to w.
	Format(w io.Writer, data any, config *FormatConfig) error

	// Name returns the name of the formatter (e.g., "json", "yaml", "table").
	Name() string

	// Supports returns true if the formatter can handle the given data type.
	Supports(data any) bool
}

// Column selects one field of each row for a table.
type Column struct {
	Header string
	// Field is a struct field name, a json tag, or a map key.
	Field string
	// Width truncates longer values when positive.
	Width int
}

// FormatConfig contains configuration options for formatting output.
type FormatConfig struct {
	// Pretty enables indentation for JSON.
	Pretty bool

	// Colors enables colored table headers.
	Colors bool

	// ShowHeaders controls header display (for tables)
	ShowHeaders bool

	// Columns fixes the table columns. Empty means detect them from the
	// first row.
	Columns []Column

	// SortBy names the header of the column to sort by.
	SortBy  string
	SortAsc bool
}

// NewFormatConfig creates a new FormatConfig with sensible defaults.
func NewFormatConfig() *FormatConfig {
	return &FormatConfig{
		Pretty:      true,
		Colors:      true,
		ShowHeaders: true,
		SortAsc:     true,
	}
}

// WithColumns sets the table columns.
func (c *FormatConfig) WithColumns(cols ...Column) *FormatConfig {
	c.Columns = cols
	return c
}

// WithColors sets the colors option.
func (c *FormatConfig) WithColors(colors bool) *FormatConfig {
	c.Colors = colors
	return c
}

// WithSorting sets the sorting options.
func (c *FormatConfig) WithSorting(header string, asc bool) *FormatConfig {
	c.SortBy = header
	c.SortAsc = asc
	return c
}
