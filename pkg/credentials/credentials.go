// Package credentials stores secret values for the host CLI and its
// plugins. A plugin may replace the default manager through its
// CredentialManager override, either with the name of a built-in manager or
// with the path of a credential helper executable.
package credentials

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Built-in manager names.
const (
	TypeKeyring = "keyring"
	TypeFile    = "file"
	TypeMemory  = "memory"
)

// Manager stores secret values by key.
type Manager interface {
	// Save stores value under key, replacing any existing value.
	Save(key, value string) error
	// Load returns the value stored under key.
	Load(key string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Name identifies the manager in messages and placeholders.
	Name() string
}

// Options configures the managers created by New.
type Options struct {
	// Service namespaces every key, normally the CLI name.
	Service string
	// Fs and FilePath locate the file manager's store. FilePath defaults to
	// credentials.json under the XDG config directory.
	Fs       afero.Fs
	FilePath string
	// HelperTimeout bounds each call to a credential helper.
	HelperTimeout time.Duration
}

// New creates the manager named by spec. An empty spec selects the keyring.
// Any other value that is not a built-in name is treated as the path of a
// credential helper executable.
func New(spec string, opts Options) (Manager, error) {
	if opts.Service == "" {
		return nil, fmt.Errorf("credential service name is required")
	}

	switch spec {
	case "", TypeKeyring:
		return NewKeyringManager(opts.Service), nil
	case TypeFile:
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		path := opts.FilePath
		if path == "" {
			path = filepath.Join(xdg.ConfigHome, opts.Service, "credentials.json")
		}
		return NewFileManager(fs, path), nil
	case TypeMemory:
		return NewMemoryManager(), nil
	default:
		return NewHelperManager(spec, opts.Service, opts.HelperTimeout), nil
	}
}

// FromOverrides creates the manager selected by the plugins' overrides. A
// helper whose module failed to load is not used.
func FromOverrides(ov plugin.Overrides, opts Options) (Manager, error) {
	spec := ov.CredentialManager
	if ov.CredentialManagerModule != nil && !ov.CredentialManagerModule.Executable {
		return nil, fmt.Errorf("credential manager %s from plug-in '%s' is not executable",
			ov.CredentialManagerModule.Path, ov.CredentialManagerPlugin)
	}
	return New(spec, opts)
}
