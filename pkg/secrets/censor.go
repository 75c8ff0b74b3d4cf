// Package secrets hides sensitive values before they are logged.
//
// A Censor decides from a name whether its value is secret. Names match
// when they equal an explicitly registered field, such as a secure profile
// property, or one of the glob patterns from DefaultFieldPatterns.
package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Style selects how a secret value is rendered.
type Style string

const (
	StyleFull    Style = "full"
	StylePartial Style = "partial"
	StyleHash    Style = "hash"
)

const defaultReplacement = "****"

// Censor masks the values of secret names.
type Censor struct {
	mu          sync.RWMutex
	patterns    []*regexp.Regexp
	explicit    map[string]bool
	style       Style
	showChars   int
	replacement string
}

// NewCensor creates a censor using the default patterns plus fields.
func NewCensor(fields ...string) *Censor {
	c := &Censor{
		explicit:    make(map[string]bool),
		style:       StyleFull,
		replacement: defaultReplacement,
	}
	for _, p := range DefaultFieldPatterns() {
		re, err := globToRegex(p)
		if err != nil {
			continue
		}
		c.patterns = append(c.patterns, re)
	}
	c.AddFields(fields...)
	return c
}

// WithStyle changes how values are masked. showChars is only used by
// StylePartial.
func (c *Censor) WithStyle(style Style, showChars int) *Censor {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.style = style
	c.showChars = showChars
	return c
}

// AddFields registers names whose values are always secret.
func (c *Censor) AddFields(fields ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fields {
		if f = normalize(f); f != "" {
			c.explicit[f] = true
		}
	}
}

// IsSecret reports whether the value of name must be hidden.
func (c *Censor) IsSecret(name string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.explicit[n] {
		return true
	}
	for _, re := range c.patterns {
		if re.MatchString(n) {
			return true
		}
	}
	return false
}

// Mask renders value according to the censor's style.
func (c *Censor) Mask(value string) string {
	c.mu.RLock()
	style, show, repl := c.style, c.showChars, c.replacement
	c.mu.RUnlock()

	switch style {
	case StyleHash:
		sum := sha256.Sum256([]byte(value))
		return "sha256:" + hex.EncodeToString(sum[:])[:16]
	case StylePartial:
		if len(value) <= show {
			return repl
		}
		return value[:show] + repl
	default:
		return repl
	}
}

// Values returns a copy of values with every secret entry masked. Nested
// maps are censored by their own keys.
func (c *Censor) Values(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case v == nil:
			out[k] = nil
		case c.IsSecret(k):
			out[k] = c.maskAny(v)
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = c.Values(nested)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// Fields lists the explicitly registered names.
func (c *Censor) Fields() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.explicit))
	for f := range c.explicit {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (c *Censor) maskAny(v any) any {
	switch val := v.(type) {
	case []string:
		masked := make([]string, len(val))
		for i, s := range val {
			masked[i] = c.Mask(s)
		}
		return masked
	case string:
		return c.Mask(val)
	default:
		return c.Mask(fmt.Sprint(val))
	}
}

// normalize makes camelCase, kebab-case and snake_case spellings of a name
// compare equal to the kebab-case form.
func normalize(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		case r == '_':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// globToRegex converts a glob pattern with * and ? to an anchored,
// case-insensitive expression.
func globToRegex(pattern string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(normalize(pattern))
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	escaped = strings.ReplaceAll(escaped, `\?`, ".")
	return regexp.Compile("(?i)^" + escaped + "$")
}
