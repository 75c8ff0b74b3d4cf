package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// SecureStore keeps the values of secure profile fields.
type SecureStore interface {
	Save(key, value string) error
	Load(key string) (string, error)
	Delete(key string) error
	Name() string
}

// typeFile is the on-disk layout of one profile type.
type typeFile struct {
	DefaultProfile string              `yaml:"defaultProfile,omitempty"`
	Profiles       map[string]*Profile `yaml:"profiles,omitempty"`
}

// Store persists profiles as one YAML file per type.
type Store struct {
	mu       sync.RWMutex
	fs       afero.Fs
	dir      string
	registry *Registry
	secure   SecureStore
}

// NewStore creates a store rooted at dir.
func NewStore(fs afero.Fs, dir string, registry *Registry) *Store {
	return &Store{fs: fs, dir: dir, registry: registry}
}

// WithSecureStore sets where secure fields are kept.
func (s *Store) WithSecureStore(secure SecureStore) *Store {
	s.secure = secure
	return s
}

// Dir returns the profiles directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(profileType string) string {
	return filepath.Join(s.dir, profileType+".yaml")
}

func (s *Store) read(profileType string) (*typeFile, error) {
	data, err := afero.ReadFile(s.fs, s.path(profileType))
	if err != nil {
		if os.IsNotExist(err) {
			return &typeFile{Profiles: make(map[string]*Profile)}, nil
		}
		return nil, fmt.Errorf("failed to read profiles of type '%s': %w", profileType, err)
	}

	var tf typeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse profiles of type '%s': %w", profileType, err)
	}
	if tf.Profiles == nil {
		tf.Profiles = make(map[string]*Profile)
	}
	for name, p := range tf.Profiles {
		p.Name = name
		p.Type = profileType
	}
	return &tf, nil
}

// write replaces the type's file through a temporary file and rename.
func (s *Store) write(profileType string, tf *typeFile) error {
	if err := s.fs.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}
	data, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	path := s.path(profileType)
	tmpPath := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to save profiles file: %w", err)
	}
	return nil
}

// Save writes a profile. An existing profile is only replaced when
// overwrite is set. The first profile of a type becomes its default.
func (s *Store) Save(p *Profile, overwrite bool) error {
	if s.registry != nil {
		if err := s.registry.Validate(p); err != nil {
			return err
		}
	} else if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tf, err := s.read(p.Type)
	if err != nil {
		return err
	}
	if existing, ok := tf.Profiles[p.Name]; ok {
		if !overwrite {
			return fmt.Errorf("profile '%s' of type '%s' already exists", p.Name, p.Type)
		}
		p.CreatedAt = existing.CreatedAt
	}

	stored := p.Clone()
	stored.UpdatedAt = time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	if err := s.storeSecureFields(stored); err != nil {
		return err
	}

	tf.Profiles[p.Name] = stored
	if tf.DefaultProfile == "" {
		tf.DefaultProfile = p.Name
	}
	return s.write(p.Type, tf)
}

// Load returns a profile with its secure fields filled in. An empty name
// loads the type's default profile.
func (s *Store) Load(profileType, name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tf, err := s.read(profileType)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = tf.DefaultProfile
	}
	p, ok := tf.Profiles[name]
	if name == "" || !ok {
		return nil, fmt.Errorf("%w: type '%s', name '%s'", ErrNotFound, profileType, name)
	}

	out := p.Clone()
	if err := s.loadSecureFields(out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the type's profiles sorted by name, plus the default name.
// Secure fields are left as placeholders.
func (s *Store) List(profileType string) ([]*Profile, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tf, err := s.read(profileType)
	if err != nil {
		return nil, "", err
	}
	names := make([]string, 0, len(tf.Profiles))
	for n := range tf.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*Profile, 0, len(names))
	for _, n := range names {
		out = append(out, tf.Profiles[n].Clone())
	}
	return out, tf.DefaultProfile, nil
}

// SetDefault makes an existing profile the type's default.
func (s *Store) SetDefault(profileType, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf, err := s.read(profileType)
	if err != nil {
		return err
	}
	if _, ok := tf.Profiles[name]; !ok {
		return fmt.Errorf("%w: type '%s', name '%s'", ErrNotFound, profileType, name)
	}
	tf.DefaultProfile = name
	return s.write(profileType, tf)
}

// Delete removes a profile and its secure values. Deleting the default
// profile leaves the type without one.
func (s *Store) Delete(profileType, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf, err := s.read(profileType)
	if err != nil {
		return err
	}
	p, ok := tf.Profiles[name]
	if !ok {
		return fmt.Errorf("%w: type '%s', name '%s'", ErrNotFound, profileType, name)
	}
	if s.secure != nil {
		for field, v := range p.Fields {
			if v == s.placeholder() {
				_ = s.secure.Delete(secureKey(profileType, name, field))
			}
		}
	}
	delete(tf.Profiles, name)
	if tf.DefaultProfile == name {
		tf.DefaultProfile = ""
	}
	return s.write(profileType, tf)
}

// LoadForCommand loads one profile per type the command depends on, in the
// dependency's order. selected maps a type to an explicitly chosen name;
// other types use their default. A missing required profile is an error
// and a missing optional one is skipped.
func (s *Store) LoadForCommand(dep *cli.ProfileDependency, selected map[string]string) ([]*Profile, error) {
	if dep == nil {
		return nil, nil
	}
	var out []*Profile
	for _, t := range dep.Required {
		p, err := s.Load(t, selected[t])
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("profile of type '%s' is required but none was found: %w", t, err)
			}
			return nil, err
		}
		out = append(out, p)
	}
	for _, t := range dep.Optional {
		p, err := s.Load(t, selected[t])
		if err != nil {
			if errors.Is(err, ErrNotFound) && selected[t] == "" {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) placeholder() string {
	if s.secure == nil {
		return ""
	}
	return "managed by " + s.secure.Name()
}

func (s *Store) storeSecureFields(p *Profile) error {
	if s.secure == nil || s.registry == nil {
		return nil
	}
	for _, field := range s.registry.SecureFields(p.Type) {
		v, ok := p.Fields[field]
		if !ok || v == nil {
			continue
		}
		if err := s.secure.Save(secureKey(p.Type, p.Name, field), fmt.Sprint(v)); err != nil {
			return fmt.Errorf("failed to store secure field '%s': %w", field, err)
		}
		p.Fields[field] = s.placeholder()
	}
	return nil
}

func (s *Store) loadSecureFields(p *Profile) error {
	if s.secure == nil {
		return nil
	}
	for field, v := range p.Fields {
		if v != s.placeholder() {
			continue
		}
		val, err := s.secure.Load(secureKey(p.Type, p.Name, field))
		if err != nil {
			return fmt.Errorf("failed to load secure field '%s' of profile '%s': %w", field, p.Name, err)
		}
		p.Fields[field] = val
	}
	return nil
}

func secureKey(profileType, name, field string) string {
	return profileType + "_" + name + "_" + field
}
