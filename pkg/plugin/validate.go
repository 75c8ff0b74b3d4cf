package plugin

import (
	"fmt"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// validatePlugin runs every check on a plugin and records what it finds.
// It reports whether the plugin has no error issues.
func (f *Facility) validatePlugin(pluginName string, props *CfgProps, group *cli.CommandDefinition) bool {
	cfg := props.Config
	key := f.host.ConfigKey

	if props.GroupName() == "" {
		f.record(pluginName, SeverityError, fmt.Sprintf(
			"The plugin's configuration does not contain an '%s.name' property, or a package 'name' property in %s.",
			key, DescriptorFile))
	} else if f.resolvedTree != nil {
		for _, existing := range f.resolvedTree.Children {
			if res := ConflictingNameOrAlias(pluginName, group, existing); res.HasConflict {
				f.record(pluginName, SeverityError, res.Message)
			}
		}
	}

	if cfg.RootCommandDescription == "" {
		f.record(pluginName, SeverityError, fmt.Sprintf(
			"The plugin's configuration does not contain an '%s.rootCommandDescription' property.", key))
	}

	if group == nil || len(group.Children) == 0 {
		f.record(pluginName, SeverityError, "The plugin's configuration defines no children.")
	} else {
		f.validatePluginCmdDefs(pluginName, group.Children, 2)
	}

	if cfg.PluginHealthCheck == "" {
		f.record(pluginName, SeverityWarning, fmt.Sprintf(
			"The plugin's configuration does not contain an '%s.pluginHealthCheck' property.", key))
	} else {
		path := f.formPluginRuntimePath(pluginName, cfg.PluginHealthCheck)
		if !f.exists(path) {
			f.record(pluginName, SeverityError, fmt.Sprintf(
				"The program for the '%s.pluginHealthCheck' property does not exist: %s", key, path))
		}
	}

	if cfg.Profiles != nil {
		f.validatePluginProfiles(pluginName, cfg.Profiles)
	}

	f.validatePeerDepVersions(pluginName, props)

	if f.cfgValidator != nil {
		err := safeCall(func() error { return f.cfgValidator.ValidatePluginConfig(cfg) })
		if err != nil {
			f.record(pluginName, SeverityError, "The plugin configuration is invalid.\nReason = "+err.Error())
		}
	}

	return !f.issues.HasError(pluginName)
}

// validatePluginCmdDefs checks each definition at depth and recurses into
// any node that has children.
func (f *Facility) validatePluginCmdDefs(pluginName string, defs []*cli.CommandDefinition, depth int) {
	for _, def := range defs {
		if def == nil || def.Name == "" {
			f.record(pluginName, SeverityError, fmt.Sprintf(
				"Command definition at depth %d has no 'name' property", depth))
			continue
		}
		at := fmt.Sprintf("%s (at depth = %d)", def.Name, depth)

		if def.Type == "" {
			f.record(pluginName, SeverityError, fmt.Sprintf("Name = '%s' has no 'type' property", at))
		} else if def.Type == cli.CommandTypeCommand {
			if def.Handler == "" {
				f.record(pluginName, SeverityError, fmt.Sprintf("Command name = '%s' has no 'handler' property", at))
			} else {
				path := f.formPluginRuntimePath(pluginName, def.Handler)
				if !f.exists(path) {
					f.record(pluginName, SeverityError, fmt.Sprintf(
						"The handler for command = '%s' does not exist: %s", at, path))
				}
			}
		}

		if def.Description == "" {
			f.record(pluginName, SeverityError, fmt.Sprintf("Name = '%s' has no 'description' property", at))
		}

		if def.Type == cli.CommandTypeGroup {
			switch {
			case def.Children == nil:
				f.record(pluginName, SeverityError, fmt.Sprintf("Group name = '%s' has no 'children' property", at))
			case len(def.Children) == 0:
				f.record(pluginName, SeverityError, fmt.Sprintf(
					"Group name = '%s' has a 'children' property with no children", at))
			}
		}

		if len(def.Children) > 0 {
			f.validatePluginCmdDefs(pluginName, def.Children, depth+1)
		}
	}
}

// validatePluginProfiles checks the profile types a plugin declares.
func (f *Facility) validatePluginProfiles(pluginName string, profiles []*cli.ProfileTypeConfiguration) {
	if len(profiles) == 0 {
		f.record(pluginName, SeverityError, "The plugin's existing 'profiles' property is empty.")
		return
	}

	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			if profiles[i] != nil && profiles[j] != nil && profiles[i].Type == profiles[j].Type {
				f.record(pluginName, SeverityError, fmt.Sprintf(
					"The plugin's profiles at indexes = '%d' and '%d' have the same 'type' property = '%s'.",
					i, j, profiles[i].Type))
			}
		}
	}

	if f.profiles == nil {
		return
	}
	existing := make(map[string]bool)
	for _, t := range f.profiles.ProfileTypes() {
		existing[t] = true
	}
	for _, p := range profiles {
		if p != nil && existing[p.Type] {
			f.record(pluginName, SeverityError, fmt.Sprintf(
				"The plugin's profile type = '%s' already exists within existing profiles.", p.Type))
		}
	}
}

// validatePeerDepVersions compares the plugin's declared dependency ranges
// with the running host and framework.
func (f *Facility) validatePeerDepVersions(pluginName string, props *CfgProps) {
	if props.CliDependency.Declared() && f.host.CliVersion != "" {
		f.comparePluginVersionToCli(pluginName,
			"peerDependencies."+props.CliDependency.Name, props.CliDependency.Version,
			"version", f.host.CliVersion)
	}

	if props.FrameworkDependency.Declared() && f.host.FrameworkVersion != "" {
		f.comparePluginVersionToCli(pluginName,
			"peerDependencies."+props.FrameworkDependency.Name, props.FrameworkDependency.Version,
			f.host.FrameworkPackageName+".version", f.host.FrameworkVersion)
	}

	if v := props.Config.PluginBaseCliVersion; v != "" && f.host.CliVersion != "" {
		f.comparePluginVersionToCli(pluginName,
			f.host.ConfigKey+".pluginBaseCliVersion", v,
			"version", f.host.CliVersion)
	}
}
