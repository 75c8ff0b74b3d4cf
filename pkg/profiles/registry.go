package profiles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/options"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Registry holds the known profile types and their compiled schemas.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	types   map[string]*cli.ProfileTypeConfiguration
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates a registry holding the given types.
func NewRegistry(initial ...*cli.ProfileTypeConfiguration) (*Registry, error) {
	r := &Registry{
		types:   make(map[string]*cli.ProfileTypeConfiguration),
		schemas: make(map[string]*jsonschema.Schema),
	}
	if len(initial) > 0 {
		if err := r.AddProfiles(initial); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ProfileTypes returns the registered type names in registration order.
func (r *Registry) ProfileTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// AddProfiles registers every given type. Nothing is registered when any
// type is a duplicate or has a schema that does not compile.
func (r *Registry) AddProfiles(profiles []*cli.ProfileTypeConfiguration) error {
	compiled := make(map[string]*jsonschema.Schema, len(profiles))
	seen := make(map[string]bool, len(profiles))

	r.mu.RLock()
	for _, p := range profiles {
		if p == nil || p.Type == "" {
			r.mu.RUnlock()
			return fmt.Errorf("profile type configuration has no type")
		}
		if _, exists := r.types[p.Type]; exists || seen[p.Type] {
			r.mu.RUnlock()
			return fmt.Errorf("profile type '%s' is already registered", p.Type)
		}
		seen[p.Type] = true
	}
	r.mu.RUnlock()

	for _, p := range profiles {
		if p.Schema == nil {
			continue
		}
		schema, err := compileProfileSchema(p.Type, p.Schema)
		if err != nil {
			return fmt.Errorf("invalid schema for profile type '%s': %w", p.Type, err)
		}
		compiled[p.Type] = schema
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range profiles {
		r.types[p.Type] = p
		r.order = append(r.order, p.Type)
		if s, ok := compiled[p.Type]; ok {
			r.schemas[p.Type] = s
		}
	}
	return nil
}

// Config returns the configuration of a registered type.
func (r *Registry) Config(profileType string) (*cli.ProfileTypeConfiguration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.types[profileType]
	return cfg, ok
}

// SecureFields returns the sorted names of the type's secure properties.
func (r *Registry) SecureFields(profileType string) []string {
	cfg, ok := r.Config(profileType)
	if !ok || cfg.Schema == nil {
		return nil
	}
	var out []string
	for name, prop := range cfg.Schema.Properties {
		if prop != nil && prop.Secure {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// CoerceFields converts raw string values to the types their schema
// properties declare. Fields the schema does not describe stay strings.
func (r *Registry) CoerceFields(profileType string, raw map[string]string) (map[string]any, error) {
	cfg, ok := r.Config(profileType)
	if !ok {
		return nil, fmt.Errorf("unknown profile type '%s'", profileType)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var prop *cli.ProfileProperty
		if cfg.Schema != nil {
			prop = cfg.Schema.Properties[k]
		}
		if prop == nil {
			out[k] = v
			continue
		}
		opt := &cli.OptionDefinition{Name: k, Type: cli.OptionType(prop.Type)}
		val, err := options.CoerceString(opt, v, options.SourceCLI)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

// Validate checks a profile's fields against its type's schema.
func (r *Registry) Validate(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.RLock()
	_, known := r.types[p.Type]
	schema := r.schemas[p.Type]
	r.mu.RUnlock()

	if !known {
		return fmt.Errorf("unknown profile type '%s'", p.Type)
	}
	if schema == nil {
		return nil
	}

	fields := p.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("converting profile to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("preparing profile for validation: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		return fmt.Errorf("profile '%s' of type '%s' is invalid:\n  - %s",
			p.Name, p.Type, strings.Join(leafMessages(ve), "\n  - "))
	}
	return nil
}

func compileProfileSchema(profileType string, s *cli.ProfileSchema) (*jsonschema.Schema, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	url := "profile-" + profileType + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := strings.Join(ve.InstanceLocation, ".")
		msg := ve.Error()
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		if loc != "" {
			msg = loc + ": " + msg
		}
		return []string{msg}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafMessages(c)...)
	}
	return out
}
