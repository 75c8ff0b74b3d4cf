package cli

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// TreeCombiner merges inline definitions with definitions found through
// command module globs into a single group node.
type TreeCombiner interface {
	CombineAllCmdDefs(baseDir string, definitions []*CommandDefinition, globs []string) (*CommandDefinition, error)
}

// DefinitionResolver is the default TreeCombiner. Glob patterns are relative
// to baseDir and each matched file holds one definition or a list of them,
// in YAML or JSON.
type DefinitionResolver struct {
	fs afero.Fs
}

// NewDefinitionResolver creates a resolver reading definition files from fs.
func NewDefinitionResolver(fs afero.Fs) *DefinitionResolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DefinitionResolver{fs: fs}
}

// CombineAllCmdDefs returns an unnamed group whose children are the inline
// definitions followed by every definition loaded from the globs.
func (r *DefinitionResolver) CombineAllCmdDefs(baseDir string, definitions []*CommandDefinition, globs []string) (*CommandDefinition, error) {
	children := make([]*CommandDefinition, 0, len(definitions))
	for _, def := range definitions {
		if def == nil {
			return nil, fmt.Errorf("command definition list contains a null entry")
		}
		children = append(children, def)
	}

	for _, pattern := range globs {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}
		matches, err := afero.Glob(r.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid command module glob %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, path := range matches {
			defs, err := r.loadDefinitionFile(path)
			if err != nil {
				return nil, err
			}
			children = append(children, defs...)
		}
	}

	return &CommandDefinition{
		Type:     CommandTypeGroup,
		Children: children,
	}, nil
}

func (r *DefinitionResolver) loadDefinitionFile(path string) ([]*CommandDefinition, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command module %s: %w", path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse command module %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("command module %s is empty", path)
	}

	if node.Content[0].Kind == yaml.SequenceNode {
		var defs []*CommandDefinition
		if err := node.Decode(&defs); err != nil {
			return nil, fmt.Errorf("failed to decode command module %s: %w", path, err)
		}
		return defs, nil
	}

	var def CommandDefinition
	if err := node.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode command module %s: %w", path, err)
	}
	return []*CommandDefinition{&def}, nil
}
