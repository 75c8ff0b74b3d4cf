package plugin

import (
	"fmt"
	"strings"
)

// Overrides are host services replaced by a plugin.
type Overrides struct {
	// CredentialManager is a built-in manager name or an absolute path to a
	// credential helper program.
	CredentialManager string
	// CredentialManagerPlugin is the plugin that supplied the override.
	CredentialManagerPlugin string
	// CredentialManagerModule is the loaded helper, nil for built-in names.
	CredentialManagerModule *Module
}

// captureOverrides records the overrides a plugin declares. The first plugin
// in registry order wins.
func (f *Facility) captureOverrides(props *CfgProps) {
	value := props.Config.Overrides.CredentialManager
	if value == "" {
		return
	}
	pluginName := props.PluginName

	if f.overrides.CredentialManager != "" {
		f.recordOverrideIssue(pluginName, SeverityWarning, fmt.Sprintf(
			"The plug-in attempted to override the CredentialManager, which the plug-in '%s' already overrides. "+
				"This override is ignored.", f.overrides.CredentialManagerPlugin))
		return
	}

	if !isModulePath(value) {
		f.overrides = Overrides{
			CredentialManager:       value,
			CredentialManagerPlugin: pluginName,
		}
		return
	}

	path := f.formPluginRuntimePath(pluginName, value)
	mod, err := f.loader.Load(path)
	if err != nil {
		f.recordOverrideIssue(pluginName, SeverityError, fmt.Sprintf(
			"Unable to load the following module for plug-in '%s' :\n%s\nReason = %s", pluginName, path, err.Error()))
		return
	}

	f.overrides = Overrides{
		CredentialManager:       path,
		CredentialManagerPlugin: pluginName,
		CredentialManagerModule: mod,
	}
}

// recordOverrideIssue records an override finding and keeps it so later
// validation passes, which clear a plugin's issues, can restore it.
func (f *Facility) recordOverrideIssue(pluginName string, sev IssueSeverity, text string) {
	f.record(pluginName, sev, text)
	f.overrideIssues[pluginName] = append(f.overrideIssues[pluginName], Issue{Severity: sev, Text: text})
}

// restoreOverrideIssues re-records the override findings of a plugin after
// its issues were cleared.
func (f *Facility) restoreOverrideIssues(pluginName string) {
	for _, issue := range f.overrideIssues[pluginName] {
		f.issues.Record(pluginName, issue.Severity, issue.Text)
	}
}

// isModulePath reports whether an override names a file rather than a
// built-in implementation.
func isModulePath(value string) bool {
	return strings.ContainsAny(value, `/\`) || strings.HasPrefix(value, ".")
}
