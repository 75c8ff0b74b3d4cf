// Package plugin implements plugin management for a host CLI.
//
// Plugins are installed under the host's plugin root and listed in a registry
// file (plugins.json). At startup the Facility reads each plugin's package
// descriptor, validates the command definitions and profiles it contributes,
// and merges every valid plugin into the host's resolved command tree.
//
// Lifecycle of a plugin within one pass:
//   - Discovered: listed in the registry
//   - ConfigRead: package descriptor and configuration loaded
//   - Validated: structural, conflict, version and schema checks done
//   - Accepted or Rejected: merged into the tree, or excluded
//
// A broken plugin never aborts the host. Its findings are recorded in an
// IssueStore and it is left out of the command tree.
package plugin

import (
	"fmt"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// State is the lifecycle state of a plugin in the current pass.
type State int

const (
	StateDiscovered State = iota
	StateConfigRead
	StateValidated
	StateAccepted
	StateRejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateConfigRead:
		return "config-read"
	case StateValidated:
		return "validated"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// noPeerDependency marks a peer dependency the plugin does not declare.
const noPeerDependency = "-1"

// PeerDep is a peer dependency declared in a plugin's package descriptor.
type PeerDep struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Declared reports whether the plugin declared the dependency.
func (d PeerDep) Declared() bool {
	return d.Version != "" && d.Version != noPeerDependency
}

// CfgProps holds everything read from one plugin's package descriptor.
type CfgProps struct {
	PluginName          string            `json:"pluginName"`
	PackageName         string            `json:"packageName"`
	PackageVersion      string            `json:"packageVersion"`
	Config              *cli.PluginConfig `json:"config"`
	CliDependency       PeerDep           `json:"cliDependency"`
	FrameworkDependency PeerDep           `json:"frameworkDependency"`
}

// GroupName returns the name of the command group the plugin contributes.
func (p *CfgProps) GroupName() string {
	if p == nil {
		return ""
	}
	if p.Config != nil && p.Config.Name != "" {
		return p.Config.Name
	}
	return p.PackageName
}

// PluginError represents a plugin failure raised outside of validation.
type PluginError struct {
	// PluginName is the name of the plugin that failed.
	PluginName string

	// Message is the error message.
	Message string

	// Cause is the underlying error.
	Cause error

	// Suggestion provides a hint to resolve the error.
	Suggestion string
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plugin '%s': %s: %v", e.PluginName, e.Message, e.Cause)
	}
	return fmt.Sprintf("plugin '%s': %s", e.PluginName, e.Message)
}

// Unwrap returns the underlying error.
func (e *PluginError) Unwrap() error {
	return e.Cause
}

// NewPluginError creates a new plugin error.
func NewPluginError(pluginName, message string, cause error) *PluginError {
	return &PluginError{
		PluginName: pluginName,
		Message:    message,
		Cause:      cause,
	}
}

// WithSuggestion adds a suggestion to the error.
func (e *PluginError) WithSuggestion(suggestion string) *PluginError {
	e.Suggestion = suggestion
	return e
}
