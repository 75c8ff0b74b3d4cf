package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/pterm/pterm"
)

// TableFormatter formats output as a table using pterm.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Supports reports whether data is a non-empty slice or map, or a struct.
func (f *TableFormatter) Supports(data any) bool {
	if data == nil {
		return false
	}

	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() > 0
	case reflect.Struct:
		return true
	case reflect.Ptr:
		if v.IsNil() {
			return false
		}
		return f.Supports(v.Elem().Interface())
	}
	return false
}

// Format renders data as a table. Slices become one row per element, maps and
// structs become key/value tables.
func (f *TableFormatter) Format(w io.Writer, data any, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}
	if data == nil {
		return fmt.Errorf("cannot format nil data as table")
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("cannot format nil pointer as table")
		}
		v = v.Elem()
	}

	var tableData [][]string
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			_, err := io.WriteString(w, "No results found\n")
			return err
		}
		tableData = f.formatSlice(v, config)
	case reflect.Map:
		tableData = f.formatMap(v, config)
	case reflect.Struct:
		tableData = f.formatStruct(v, config)
	default:
		return fmt.Errorf("unsupported data type for table formatting: %s", v.Kind())
	}

	if config.SortBy != "" && config.ShowHeaders {
		tableData = sortTableData(tableData, config.SortBy, config.SortAsc)
	}

	table := pterm.DefaultTable.WithHasHeader(config.ShowHeaders)
	if config.Colors {
		table = table.WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold))
	} else {
		pterm.DisableColor()
		defer pterm.EnableColor()
	}

	rendered, err := table.WithData(tableData).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = io.WriteString(w, rendered+"\n")
	return err
}

func (f *TableFormatter) formatSlice(v reflect.Value, config *FormatConfig) [][]string {
	columns := config.Columns
	if len(columns) == 0 {
		columns = detectColumns(v.Index(0))
	}

	tableData := make([][]string, 0, v.Len()+1)
	if config.ShowHeaders {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = col.Header
			if headers[i] == "" {
				headers[i] = strings.ToUpper(col.Field)
			}
		}
		tableData = append(tableData, headers)
	}

	for i := 0; i < v.Len(); i++ {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = formatValue(extractField(v.Index(i), col.Field))
			if col.Width > 3 && len(row[j]) > col.Width {
				row[j] = row[j][:col.Width-3] + "..."
			}
		}
		tableData = append(tableData, row)
	}
	return tableData
}

func (f *TableFormatter) formatMap(v reflect.Value, config *FormatConfig) [][]string {
	tableData := make([][]string, 0, v.Len()+1)
	if config.ShowHeaders {
		tableData = append(tableData, []string{"KEY", "VALUE"})
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	for _, key := range keys {
		tableData = append(tableData, []string{
			fmt.Sprint(key.Interface()),
			formatValue(v.MapIndex(key).Interface()),
		})
	}
	return tableData
}

func (f *TableFormatter) formatStruct(v reflect.Value, config *FormatConfig) [][]string {
	t := v.Type()
	tableData := make([][]string, 0, t.NumField()+1)
	if config.ShowHeaders {
		tableData = append(tableData, []string{"FIELD", "VALUE"})
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tableData = append(tableData, []string{
			fieldName(field),
			formatValue(v.Field(i).Interface()),
		})
	}
	return tableData
}

// detectColumns derives columns from the first row. Map keys are sorted so
// the column order is stable.
func detectColumns(v reflect.Value) []Column {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	var columns []Column
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := fieldName(field)
			columns = append(columns, Column{Field: name, Header: strings.ToUpper(name)})
		}
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		for _, key := range v.MapKeys() {
			keys = append(keys, fmt.Sprint(key.Interface()))
		}
		sort.Strings(keys)
		for _, key := range keys {
			columns = append(columns, Column{Field: key, Header: strings.ToUpper(key)})
		}
	default:
		columns = []Column{{Field: "", Header: "VALUE"}}
	}
	return columns
}

// fieldName returns the json tag name of a field, or its Go name.
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// extractField looks up field by map key, Go field name or json tag. An empty
// field returns the value itself.
func extractField(v reflect.Value, field string) any {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if field == "" {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Map:
		for _, key := range v.MapKeys() {
			if fmt.Sprint(key.Interface()) == field {
				return v.MapIndex(key).Interface()
			}
		}
	case reflect.Struct:
		if fv := v.FieldByName(field); fv.IsValid() && fv.CanInterface() {
			return fv.Interface()
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() && fieldName(t.Field(i)) == field {
				return v.Field(i).Interface()
			}
		}
	}
	return nil
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}

	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		value = v.Elem().Interface()
	}

	switch val := value.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// sortTableData sorts the rows below the header by the named column.
func sortTableData(data [][]string, header string, asc bool) [][]string {
	if len(data) <= 2 {
		return data
	}

	col := -1
	for i, h := range data[0] {
		if strings.EqualFold(h, header) {
			col = i
			break
		}
	}
	if col == -1 {
		return data
	}

	rows := data[1:]
	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return rows[i][col] < rows[j][col]
		}
		return rows[i][col] > rows[j][col]
	})
	return data
}
