package webhelp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/spf13/afero"
)

// PackageMetadata identifies one package whose commands appear in web help.
type PackageMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Metadata lists the host followed by every installed plugin.
type Metadata []PackageMetadata

// CurrentMetadata computes the metadata for a host and its registry.
func CurrentMetadata(hostName, hostVersion string, installed plugin.InstalledPlugins) Metadata {
	md := Metadata{{Name: hostName, Version: hostVersion}}
	for _, ip := range installed {
		md = append(md, PackageMetadata{Name: ip.Name, Version: ip.Entry.Version})
	}
	return md
}

// Equal compares two metadata lists regardless of order.
func (m Metadata) Equal(other Metadata) bool {
	if len(m) != len(other) {
		return false
	}
	a, b := m.sorted(), other.sorted()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m Metadata) sorted() Metadata {
	out := append(Metadata(nil), m...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// readMetadata returns nil when the cache file does not exist yet.
func readMetadata(fs afero.Fs, dir string) (Metadata, error) {
	path := filepath.Join(dir, metadataFile)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return md, nil
}

func writeMetadata(fs afero.Fs, dir string, md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode web help metadata: %w", err)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := afero.WriteFile(fs, filepath.Join(dir, metadataFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write web help metadata: %w", err)
	}
	return nil
}
