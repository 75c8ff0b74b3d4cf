package options

import (
	"strings"
	"unicode"
)

// EnvNamer maps an option to the environment variable that supplies it.
type EnvNamer interface {
	EnvName(prefix, option string) string
}

// EnvNamerFunc adapts a function to EnvNamer.
type EnvNamerFunc func(prefix, option string) string

// EnvName calls f.
func (f EnvNamerFunc) EnvName(prefix, option string) string {
	return f(prefix, option)
}

// DefaultEnvNamer names variables PREFIX_OPT_OPTION_NAME.
var DefaultEnvNamer EnvNamer = EnvNamerFunc(func(prefix, option string) string {
	if prefix == "" {
		return "OPT_" + UpperSnake(option)
	}
	return prefix + "_OPT_" + UpperSnake(option)
})

// UpperSnake converts camelCase, kebab-case and dotted names to
// UPPER_SNAKE_CASE. Runs of non-alphanumerics collapse to one underscore.
func UpperSnake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	sep := true
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !sep {
				b.WriteByte('_')
				sep = true
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 && !sep {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
		sep = false
	}
	return strings.TrimSuffix(b.String(), "_")
}

// CamelCase converts kebab-case or snake_case to camelCase.
func CamelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	if len(parts) <= 1 {
		return s
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		rs := []rune(p)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}

// KebabCase converts camelCase to kebab-case.
func KebabCase(s string) string {
	return strings.ToLower(strings.ReplaceAll(UpperSnake(s), "_", "-"))
}
