package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// RegistryEntry records how a plugin was installed.
type RegistryEntry struct {
	Package  string `json:"package"`
	Registry string `json:"registry,omitempty"`
	Version  string `json:"version"`
}

// InstalledPlugin is one named registry entry.
type InstalledPlugin struct {
	Name  string
	Entry RegistryEntry
}

// InstalledPlugins is the content of plugins.json in file order.
type InstalledPlugins []InstalledPlugin

// Names returns plugin names in registry order.
func (p InstalledPlugins) Names() []string {
	names := make([]string, len(p))
	for i, ip := range p {
		names[i] = ip.Name
	}
	return names
}

// Get returns the entry for name.
func (p InstalledPlugins) Get(name string) (RegistryEntry, bool) {
	for _, ip := range p {
		if ip.Name == name {
			return ip.Entry, true
		}
	}
	return RegistryEntry{}, false
}

// UnmarshalJSON decodes a JSON object and keeps its key order.
func (p *InstalledPlugins) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("plugin registry must be a JSON object")
	}

	var out InstalledPlugins
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected registry key %v", tok)
		}

		var entry RegistryEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("invalid registry entry for %q: %w", name, err)
		}

		if idx, dup := seen[name]; dup {
			out[idx].Entry = entry
			continue
		}
		seen[name] = len(out)
		out = append(out, InstalledPlugin{Name: name, Entry: entry})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalJSON encodes the registry as a JSON object in slice order.
func (p InstalledPlugins) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ip := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ip.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(ip.Entry)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Registry reads and writes the plugin registry file.
type Registry struct {
	fs   afero.Fs
	path string
}

// NewRegistry creates a registry backed by the file at path.
func NewRegistry(fs afero.Fs, path string) *Registry {
	return &Registry{fs: fs, path: path}
}

// Path returns the registry file location.
func (r *Registry) Path() string {
	return r.path
}

// Ensure creates the registry directory and an empty registry file when they
// are missing. An existing file is never overwritten.
func (r *Registry) Ensure() error {
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}

	f, err := r.fs.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create plugin registry: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("{}\n")); err != nil {
		return fmt.Errorf("failed to write plugin registry: %w", err)
	}
	return nil
}

// Load reads the registry. A missing file is an empty registry.
func (r *Registry) Load() (InstalledPlugins, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return InstalledPlugins{}, nil
		}
		return nil, fmt.Errorf("failed to read plugin registry: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return InstalledPlugins{}, nil
	}

	var plugins InstalledPlugins
	if err := json.Unmarshal(data, &plugins); err != nil {
		return nil, fmt.Errorf("failed to parse plugin registry %s: %w", r.path, err)
	}
	return plugins, nil
}

// Save writes the registry with indentation.
func (r *Registry) Save(plugins InstalledPlugins) error {
	raw, err := json.Marshal(plugins)
	if err != nil {
		return fmt.Errorf("failed to marshal plugin registry: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format plugin registry: %w", err)
	}
	pretty.WriteByte('\n')

	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}
	if err := afero.WriteFile(r.fs, r.path, pretty.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write plugin registry: %w", err)
	}
	return nil
}

// Remove deletes name from the registry file and reports whether it was there.
func (r *Registry) Remove(name string) (bool, error) {
	plugins, err := r.Load()
	if err != nil {
		return false, err
	}

	out := plugins[:0]
	found := false
	for _, ip := range plugins {
		if ip.Name == name {
			found = true
			continue
		}
		out = append(out, ip)
	}
	if !found {
		return false, nil
	}
	return true, r.Save(out)
}
