package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileManager keeps values in a JSON file readable only by its owner.
type FileManager struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewFileManager creates a file-backed manager.
func NewFileManager(fs afero.Fs, path string) *FileManager {
	return &FileManager{fs: fs, path: path}
}

// Path returns the credentials file.
func (f *FileManager) Path() string {
	return f.path
}

func (f *FileManager) read() (map[string]string, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return values, nil
}

func (f *FileManager) write(values map[string]string) error {
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := afero.WriteFile(f.fs, f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// Save implements Manager.
func (f *FileManager) Save(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

// Load implements Manager.
func (f *FileManager) Load(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// Delete implements Manager.
func (f *FileManager) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.write(values)
}

// Name implements Manager.
func (f *FileManager) Name() string {
	return "the credentials file"
}
