package plugin

import (
	"fmt"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// addCmdGrpToResolvedCliCmdTree appends the plugin's group to the top level
// of the resolved tree.
func (f *Facility) addCmdGrpToResolvedCliCmdTree(pluginName string, group *cli.CommandDefinition) bool {
	if f.resolvedTree == nil {
		f.record(pluginName, SeverityError,
			"The resolved command tree was null. The host CLI should have created an empty command definition array.")
		return false
	}
	if f.resolvedTree.Children == nil {
		f.record(pluginName, SeverityError,
			"The resolved command tree children was null. The host CLI should have created an empty children array.")
		return false
	}

	for _, child := range f.resolvedTree.Children {
		if child != nil && strings.EqualFold(child.Name, group.Name) {
			f.record(pluginName, SeverityError, fmt.Sprintf(
				"The command group = '%s' already exists. Plugin management should have already rejected this plugin.",
				group.Name))
			return false
		}
	}

	f.resolvedTree.Children = append(f.resolvedTree.Children, group)
	return true
}

// RemoveCmdGrpFromResolvedCliCmdTree removes the first top-level child named
// like group. The order of the remaining children is kept. Nothing happens
// when the tree is empty or no child matches.
func (f *Facility) RemoveCmdGrpFromResolvedCliCmdTree(group *cli.CommandDefinition) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if group == nil || f.resolvedTree == nil || len(f.resolvedTree.Children) == 0 {
		return
	}

	for i, child := range f.resolvedTree.Children {
		if child != nil && strings.EqualFold(child.Name, group.Name) {
			f.resolvedTree.Children = append(f.resolvedTree.Children[:i:i], f.resolvedTree.Children[i+1:]...)
			for name, node := range f.merged {
				if node == child {
					delete(f.merged, name)
				}
			}
			return
		}
	}
}

// detachChild removes node from the top level and returns its index, or -1.
func (f *Facility) detachChild(node *cli.CommandDefinition) int {
	if f.resolvedTree == nil {
		return -1
	}
	for i, child := range f.resolvedTree.Children {
		if child == node {
			f.resolvedTree.Children = append(f.resolvedTree.Children[:i:i], f.resolvedTree.Children[i+1:]...)
			return i
		}
	}
	return -1
}

// reattachChild puts node back at idx.
func (f *Facility) reattachChild(node *cli.CommandDefinition, idx int) {
	if idx < 0 || f.resolvedTree == nil {
		return
	}
	children := f.resolvedTree.Children
	if idx > len(children) {
		idx = len(children)
	}
	out := make([]*cli.CommandDefinition, 0, len(children)+1)
	out = append(out, children[:idx]...)
	out = append(out, node)
	out = append(out, children[idx:]...)
	f.resolvedTree.Children = out
}
