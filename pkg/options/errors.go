package options

import (
	"fmt"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// ErrorKind classifies a SyntaxError.
type ErrorKind int

const (
	// KindInvalidType means a value could not be converted to the option's type.
	KindInvalidType ErrorKind = iota

	// KindMissingRequired means a required option received no value from any source.
	KindMissingRequired

	// KindNotAllowed means a value is outside the option's allowable values.
	KindNotAllowed
)

// String returns a string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidType:
		return "invalid-type"
	case KindMissingRequired:
		return "missing-required"
	case KindNotAllowed:
		return "not-allowed"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// SyntaxError reports an option value that cannot be used. Any SyntaxError
// aborts resolution for the whole invocation.
type SyntaxError struct {
	Kind     ErrorKind
	Option   string
	Value    string
	Expected cli.OptionType
	Source   Source
	Allowed  []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	b.WriteString("Syntax Error:\n")
	switch e.Kind {
	case KindMissingRequired:
		fmt.Fprintf(&b, "Missing Required Option:\n--%s", e.Option)
		return b.String()
	case KindNotAllowed:
		fmt.Fprintf(&b, "Invalid value specified for option:\n--%s\n\nYou specified:\n%s\n\n", e.Option, e.Value)
		fmt.Fprintf(&b, "The value must match one of the following options:\n[%s].", strings.Join(e.Allowed, ", "))
	default:
		fmt.Fprintf(&b, "Invalid value specified for option:\n--%s\n\nYou specified:\n%s\n\n", e.Option, e.Value)
		b.WriteString("The value must be " + typeDescription(e.Expected) + ".")
	}
	if e.Source != SourceNone && e.Source != SourceCLI {
		fmt.Fprintf(&b, "\nThe value came from the %s.", e.Source.Description())
	}
	return b.String()
}

func typeDescription(t cli.OptionType) string {
	switch t {
	case cli.OptionTypeBoolean:
		return "a boolean (true or false)"
	case cli.OptionTypeNumber:
		return "a number"
	case cli.OptionTypeArray:
		return "an array of strings"
	default:
		return "a string"
	}
}
