package options

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// CoerceString converts a raw string to the option's declared type.
func CoerceString(opt *cli.OptionDefinition, raw string, src Source) (any, error) {
	switch opt.Type {
	case cli.OptionTypeBoolean:
		switch raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, invalid(opt, raw, src)

	case cli.OptionTypeNumber:
		n, err := parseNumber(raw)
		if err != nil {
			return nil, invalid(opt, raw, src)
		}
		return n, nil

	case cli.OptionTypeArray:
		items, err := SplitArray(raw)
		if err != nil {
			return nil, invalid(opt, raw, src)
		}
		return items, nil

	default:
		return raw, nil
	}
}

// CoerceValue converts an already-typed value, such as a parsed flag or a
// field decoded from a profile, to the option's declared type. Strings are
// handled by CoerceString.
func CoerceValue(opt *cli.OptionDefinition, v any, src Source) (any, error) {
	if s, ok := v.(string); ok {
		return CoerceString(opt, s, src)
	}

	switch opt.Type {
	case cli.OptionTypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}

	case cli.OptionTypeNumber:
		if n, ok := toFloat(v); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n, nil
		}

	case cli.OptionTypeArray:
		switch items := v.(type) {
		case []string:
			return append([]string(nil), items...), nil
		case []any:
			out := make([]string, 0, len(items))
			for _, item := range items {
				if !isScalar(item) {
					return nil, invalid(opt, fmt.Sprint(v), src)
				}
				out = append(out, fmt.Sprint(item))
			}
			return out, nil
		}

	default:
		if isScalar(v) {
			return fmt.Sprint(v), nil
		}
	}
	return nil, invalid(opt, fmt.Sprint(v), src)
}

func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return n, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := toFloat(v)
	return ok
}

func invalid(opt *cli.OptionDefinition, raw string, src Source) *SyntaxError {
	return &SyntaxError{
		Kind:     KindInvalidType,
		Option:   opt.Name,
		Value:    raw,
		Expected: opt.Type,
		Source:   src,
	}
}
