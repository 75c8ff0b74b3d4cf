// Package profiles stores named sets of option values, grouped by profile
// type, and keeps the registry of types that the host and its plugins
// declare.
//
// Profiles of one type live in a single YAML file under the profiles
// directory, together with the name of the type's default profile. Fields
// whose schema property is marked secure are kept in a SecureStore and the
// file records a placeholder instead.
package profiles

import (
	"fmt"
	"time"
)

// Profile is one named set of field values.
type Profile struct {
	Name      string         `yaml:"name" json:"name"`
	Type      string         `yaml:"type" json:"type"`
	Fields    map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
	CreatedAt time.Time      `yaml:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// NewProfile creates an empty profile.
func NewProfile(profileType, name string) *Profile {
	return &Profile{
		Name:      name,
		Type:      profileType,
		Fields:    make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// Set sets a field.
func (p *Profile) Set(key string, value any) {
	if p.Fields == nil {
		p.Fields = make(map[string]any)
	}
	p.Fields[key] = value
}

// Get gets a field.
func (p *Profile) Get(key string) (any, bool) {
	if p.Fields == nil {
		return nil, false
	}
	v, ok := p.Fields[key]
	return v, ok
}

// Delete deletes a field.
func (p *Profile) Delete(key string) {
	if p.Fields != nil {
		delete(p.Fields, key)
	}
}

// Clone returns a copy with its own field map.
func (p *Profile) Clone() *Profile {
	clone := *p
	clone.Fields = make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		clone.Fields[k] = v
	}
	return &clone
}

// Validate checks the identifying fields.
func (p *Profile) Validate() error {
	if p.Type == "" {
		return fmt.Errorf("profile type cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	return nil
}
