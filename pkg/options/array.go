package options

import (
	"fmt"
	"strings"
	"unicode"
)

// SplitArray splits a space-delimited string into elements. Single or double
// quotes group text containing spaces and a backslash escapes the next
// character outside single quotes.
func SplitArray(raw string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inToken bool
		quote   rune
		escaped bool
	)

	for _, r := range raw {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				out = append(out, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		cur.WriteRune('\\')
	}
	if inToken {
		out = append(out, cur.String())
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
