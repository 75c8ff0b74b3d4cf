package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Module is something a plugin references by path and the host loads, such
// as an override implementation or a command handler.
type Module struct {
	Path       string
	Executable bool
}

// ModuleLoader resolves a path to a loaded module.
type ModuleLoader interface {
	Load(path string) (*Module, error)
}

// FSModuleLoader loads modules from a filesystem. A module must be a regular
// file.
type FSModuleLoader struct {
	fs afero.Fs
}

// NewFSModuleLoader creates a loader over fs.
func NewFSModuleLoader(fs afero.Fs) *FSModuleLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FSModuleLoader{fs: fs}
}

// Load stats path and returns the module it names.
func (l *FSModuleLoader) Load(path string) (*Module, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("module path %q is not absolute", path)
	}

	info, err := l.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("module %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to stat module %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("module %s is a directory", path)
	}

	return &Module{
		Path:       path,
		Executable: info.Mode().Perm()&0111 != 0,
	}, nil
}
