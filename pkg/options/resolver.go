// Package options computes the effective value of every option and
// positional of an invoked command.
//
// Each value comes from the first source that supplies one, highest first:
// an explicit command-line value, an environment variable, a field of an
// active profile, then the option's declared default. Raw strings are
// converted to the option's declared type and a conversion failure aborts
// the invocation with a *SyntaxError.
package options

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// Source identifies where a resolved value came from.
type Source int

const (
	// SourceNone means no source supplied a value.
	SourceNone Source = iota

	// SourceDefault means the value is the option's declared default.
	SourceDefault

	// SourceProfile means the value came from an active profile.
	SourceProfile

	// SourceEnv means the value came from an environment variable.
	SourceEnv

	// SourceCLI means the user typed the value for this invocation.
	SourceCLI
)

// String returns a string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceDefault:
		return "default"
	case SourceProfile:
		return "profile"
	case SourceEnv:
		return "env"
	case SourceCLI:
		return "cli"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Description is the phrase used in error messages.
func (s Source) Description() string {
	switch s {
	case SourceDefault:
		return "option's default value"
	case SourceProfile:
		return "active profile"
	case SourceEnv:
		return "environment"
	case SourceCLI:
		return "command line"
	default:
		return "unknown source"
	}
}

// ProfileFields are the stored fields of one loaded profile.
type ProfileFields map[string]any

// Input is everything known about one invocation.
type Input struct {
	// Positionals and Options are the command's declared options.
	Positionals []*cli.OptionDefinition
	Options     []*cli.OptionDefinition
	// Explicit holds values the user typed, keyed by option or positional
	// name. Absent keys were not typed.
	Explicit map[string]any
	// Profiles are the loaded profiles in lookup order. The first profile
	// holding a matching field wins.
	Profiles []ProfileFields
}

// InputFor returns an Input for the command's declared options.
func InputFor(cmd *cli.CommandDefinition) *Input {
	in := &Input{Explicit: make(map[string]any)}
	if cmd != nil {
		in.Positionals = cmd.Positionals
		in.Options = cmd.Options
	}
	return in
}

// Arguments are the resolved values of one invocation.
type Arguments struct {
	Values  map[string]any
	Sources map[string]Source
}

// Get returns the value for name and whether one was resolved.
func (a *Arguments) Get(name string) (any, bool) {
	v, ok := a.Values[name]
	return v, ok
}

// String returns the value for name as a string, or "".
func (a *Arguments) String(name string) string {
	if s, ok := a.Values[name].(string); ok {
		return s
	}
	return ""
}

// Bool returns the value for name as a bool, or false.
func (a *Arguments) Bool(name string) bool {
	b, _ := a.Values[name].(bool)
	return b
}

// Number returns the value for name as a float64, or 0.
func (a *Arguments) Number(name string) float64 {
	n, _ := a.Values[name].(float64)
	return n
}

// Strings returns the value for name as a slice, or nil.
func (a *Arguments) Strings(name string) []string {
	s, _ := a.Values[name].([]string)
	return s
}

// SourceOf returns where the value for name came from.
func (a *Arguments) SourceOf(name string) Source {
	return a.Sources[name]
}

// Names returns the resolved names in sorted order.
func (a *Arguments) Names() []string {
	names := make([]string, 0, len(a.Values))
	for n := range a.Values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolver applies the precedence chain.
type Resolver struct {
	prefix string
	namer  EnvNamer
	lookup func(string) (string, bool)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvNamer replaces the environment variable naming convention.
func WithEnvNamer(n EnvNamer) ResolverOption {
	return func(r *Resolver) { r.namer = n }
}

// WithLookup replaces the environment lookup, os.LookupEnv by default.
func WithLookup(fn func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) { r.lookup = fn }
}

// NewResolver creates a resolver reading variables that start with prefix.
func NewResolver(prefix string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		prefix: prefix,
		namer:  DefaultEnvNamer,
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnvName returns the variable consulted for option.
func (r *Resolver) EnvName(option string) string {
	return r.namer.EnvName(r.prefix, option)
}

// Resolve computes one value per declared positional and option. Options
// with no value from any source are absent from the result.
func (r *Resolver) Resolve(in *Input) (*Arguments, error) {
	args := &Arguments{
		Values:  make(map[string]any),
		Sources: make(map[string]Source),
	}
	if in == nil {
		return args, nil
	}

	defs := make([]*cli.OptionDefinition, 0, len(in.Positionals)+len(in.Options))
	defs = append(defs, in.Positionals...)
	defs = append(defs, in.Options...)

	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		v, src, err := r.resolveOne(in, def)
		if err != nil {
			return nil, err
		}
		if src == SourceNone {
			if def.Required {
				return nil, &SyntaxError{Kind: KindMissingRequired, Option: def.Name, Expected: def.Type}
			}
			continue
		}
		if err := checkAllowed(def, v, src); err != nil {
			return nil, err
		}
		args.Values[def.Name] = v
		args.Sources[def.Name] = src
	}
	return args, nil
}

func (r *Resolver) resolveOne(in *Input, def *cli.OptionDefinition) (any, Source, error) {
	if v, ok := in.Explicit[def.Name]; ok {
		out, err := CoerceValue(def, v, SourceCLI)
		return out, SourceCLI, err
	}

	if raw, ok := r.lookup(r.EnvName(def.Name)); ok && raw != "" {
		out, err := CoerceString(def, raw, SourceEnv)
		return out, SourceEnv, err
	}

	for _, fields := range in.Profiles {
		if v, ok := ProfileValue(fields, def); ok {
			out, err := CoerceValue(def, v, SourceProfile)
			return out, SourceProfile, err
		}
	}

	if def.DefaultValue != nil {
		out, err := CoerceValue(def, def.DefaultValue, SourceDefault)
		return out, SourceDefault, err
	}
	return nil, SourceNone, nil
}

// ProfileValue finds the profile field for def. The exact name is tried
// first, then its camelCase and kebab-case forms, then each alias.
func ProfileValue(fields ProfileFields, def *cli.OptionDefinition) (any, bool) {
	if fields == nil {
		return nil, false
	}
	keys := []string{def.Name, CamelCase(def.Name), KebabCase(def.Name)}
	keys = append(keys, def.Aliases...)
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func checkAllowed(def *cli.OptionDefinition, v any, src Source) error {
	if len(def.AllowableValues) == 0 {
		return nil
	}
	var values []string
	switch t := v.(type) {
	case string:
		values = []string{t}
	case []string:
		values = t
	default:
		return nil
	}
	for _, val := range values {
		if !allowed(def.AllowableValues, val) {
			return &SyntaxError{
				Kind:     KindNotAllowed,
				Option:   def.Name,
				Value:    val,
				Expected: def.Type,
				Source:   src,
				Allowed:  def.AllowableValues,
			}
		}
	}
	return nil
}

func allowed(list []string, v string) bool {
	for _, a := range list {
		if strings.EqualFold(a, v) {
			return true
		}
	}
	return false
}
