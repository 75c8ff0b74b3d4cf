// Package webhelp keeps the generated web help of the host CLI current and
// opens it in a browser.
//
// Help pages are regenerated only when the host or the set of installed
// plugins changed since the last generation. The cache of what was generated
// is web-help/metadata.json under the CLI home.
package webhelp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/afero"
)

const (
	metadataFile = "metadata.json"
	treeDataFile = "tree-data.js"
	indexFile    = "index.html"
)

var cmdToLoadRe = regexp.MustCompile(`const cmdToLoad[^;]*;`)

// Generator builds the web help pages for a resolved command tree into dir.
// The generator must write tree-data.js containing a `const cmdToLoad = ...;`
// statement and index.html.
type Generator interface {
	Generate(fs afero.Fs, dir string, root *cli.CommandDefinition) error
}

// Opener opens a URL or file in the user's browser.
type Opener func(target string) error

// Options configures a Manager.
type Options struct {
	Fs          afero.Fs
	HostName    string
	HostVersion string
	Registry    *plugin.Registry
	Generator   Generator
	Opener      Opener
	Logger      *slog.Logger
}

// Manager regenerates web help when needed and opens it.
type Manager struct {
	fs          afero.Fs
	dir         string
	hostName    string
	hostVersion string
	registry    *plugin.Registry
	generator   Generator
	opener      Opener
	logger      *slog.Logger
}

// NewManager creates a manager for the web-help directory under home.
func NewManager(home string, opts Options) *Manager {
	m := &Manager{
		fs:          opts.Fs,
		dir:         filepath.Join(home, "web-help"),
		hostName:    opts.HostName,
		hostVersion: opts.HostVersion,
		registry:    opts.Registry,
		generator:   opts.Generator,
		opener:      opts.Opener,
		logger:      opts.Logger,
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	if m.generator == nil {
		m.generator = TreeDumpGenerator{}
	}
	if m.opener == nil {
		m.opener = open.Run
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Dir returns the web help directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CheckIfMetadataChanged returns the current metadata when it differs from
// the cached one, or nil when the cache is current.
func (m *Manager) CheckIfMetadataChanged() (Metadata, error) {
	cached, err := readMetadata(m.fs, m.dir)
	if err != nil {
		return nil, err
	}

	var installed plugin.InstalledPlugins
	if m.registry != nil {
		installed, err = m.registry.Load()
		if err != nil {
			return nil, err
		}
	}

	current := CurrentMetadata(m.hostName, m.hostVersion, installed)
	if cached != nil && cached.Equal(current) {
		return nil, nil
	}
	return current, nil
}

// OpenRootHelp opens the help landing page.
func (m *Manager) OpenRootHelp(root *cli.CommandDefinition) error {
	return m.OpenHelp(root, "")
}

// OpenHelp regenerates help when the metadata changed, points the page at
// the command inContext ("" for the root) and opens it.
func (m *Manager) OpenHelp(root *cli.CommandDefinition, inContext string) error {
	changed, err := m.CheckIfMetadataChanged()
	if err != nil {
		return err
	}
	if changed != nil {
		m.logger.Debug("regenerating web help", "dir", m.dir)
		if err := m.generator.Generate(m.fs, m.dir, root); err != nil {
			return fmt.Errorf("failed to generate web help: %w", err)
		}
		if err := writeMetadata(m.fs, m.dir, changed); err != nil {
			return err
		}
	}

	if err := m.setCmdToLoad(inContext); err != nil {
		return err
	}

	target := "file://" + filepath.ToSlash(filepath.Join(m.dir, indexFile))
	if err := m.opener(target); err != nil {
		m.logger.Warn("could not open web help", "target", target, "error", err)
	}
	return nil
}

func (m *Manager) setCmdToLoad(inContext string) error {
	path := filepath.Join(m.dir, treeDataFile)
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	value := "null"
	if inContext != "" {
		value = strconv.Quote(inContext)
	}
	updated := cmdToLoadRe.ReplaceAllLiteral(data, []byte("const cmdToLoad = "+value+";"))
	if err := afero.WriteFile(m.fs, path, updated, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// TreeDumpGenerator writes the resolved tree as tree-data.js next to a static
// index page. Page rendering is left to whatever consumes tree-data.js.
type TreeDumpGenerator struct{}

// Generate writes index.html and tree-data.js into dir.
func (TreeDumpGenerator) Generate(fs afero.Fs, dir string, root *cli.CommandDefinition) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tree, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode command tree: %w", err)
	}
	treeData := "const cmdToLoad = null;\nconst treeNodes = " + string(tree) + ";\n"
	if err := afero.WriteFile(fs, filepath.Join(dir, treeDataFile), []byte(treeData), 0644); err != nil {
		return fmt.Errorf("failed to write tree data: %w", err)
	}

	index := "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><script src=\"tree-data.js\"></script></head>\n<body></body>\n</html>\n"
	if err := afero.WriteFile(fs, filepath.Join(dir, indexFile), []byte(index), 0644); err != nil {
		return fmt.Errorf("failed to write index page: %w", err)
	}
	return nil
}
