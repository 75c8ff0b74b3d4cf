package plugin

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/spf13/afero"
)

// ReadPluginConfig reads one plugin's package descriptor and configuration.
// It returns nil after recording an error when the plugin cannot be read.
func (f *Facility) ReadPluginConfig(pluginName string) *CfgProps {
	return f.readPluginConfig(pluginName)
}

func (f *Facility) readPluginConfig(pluginName string) *CfgProps {
	pluginDir := f.PluginDir(pluginName)
	if !f.exists(pluginDir) {
		f.record(pluginName, SeverityError, "The path to the plugin does not exist: "+pluginDir)
		return nil
	}

	descPath := filepath.Join(pluginDir, DescriptorFile)
	if !f.exists(descPath) {
		f.record(pluginName, SeverityError, "Configuration file does not exist: '"+descPath+"'")
		return nil
	}

	data, err := afero.ReadFile(f.fs, descPath)
	if err != nil {
		f.record(pluginName, SeverityError, fmt.Sprintf("Cannot read '%s' Reason = %s", descPath, err.Error()))
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		f.record(pluginName, SeverityError, fmt.Sprintf("Cannot read '%s' Reason = %s", descPath, err.Error()))
		return nil
	}

	props := &CfgProps{
		PluginName:          pluginName,
		CliDependency:       PeerDep{Name: f.CliPkgName(), Version: noPeerDependency},
		FrameworkDependency: PeerDep{Name: f.host.FrameworkPackageName, Version: noPeerDependency},
	}
	decodeString(raw, "name", &props.PackageName)
	decodeString(raw, "version", &props.PackageVersion)

	if peerRaw, ok := raw["peerDependencies"]; !ok {
		f.record(pluginName, SeverityWarning, fmt.Sprintf(
			"Your '%s' dependencies must be contained within a 'peerDependencies' property. "+
				"That property does not exist in the file '%s'.", f.frameworkLabel(), descPath))
	} else {
		var peers map[string]string
		if err := json.Unmarshal(peerRaw, &peers); err != nil {
			f.record(pluginName, SeverityError, fmt.Sprintf("Cannot read '%s' Reason = %s", descPath, err.Error()))
			return nil
		}
		if v, ok := peers[props.CliDependency.Name]; ok {
			props.CliDependency.Version = v
		} else {
			f.record(pluginName, SeverityWarning, fmt.Sprintf(
				"The property '%s' does not exist within the 'peerDependencies' property in the file '%s'.",
				props.CliDependency.Name, descPath))
		}
		if name := props.FrameworkDependency.Name; name != "" {
			if v, ok := peers[name]; ok {
				props.FrameworkDependency.Version = v
			}
		}
	}

	cfg := &cli.PluginConfig{}
	if cfgRaw, ok := raw[f.host.ConfigKey]; !ok {
		f.record(pluginName, SeverityWarning, fmt.Sprintf(
			"The required property '%s' does not exist in the file '%s'.", f.host.ConfigKey, descPath))
	} else if err := json.Unmarshal(cfgRaw, cfg); err != nil {
		f.record(pluginName, SeverityError, fmt.Sprintf("Cannot read '%s' Reason = %s", descPath, err.Error()))
		return nil
	}

	if f.cfgLoader != nil {
		var loaded *cli.PluginConfig
		err := safeCall(func() error {
			var err error
			loaded, err = f.cfgLoader.LoadPluginConfig(pluginDir, cfg)
			return err
		})
		if err != nil {
			f.record(pluginName, SeverityError, "Failed to load the plugin's configuration. Reason = "+err.Error())
			return nil
		}
		if loaded != nil {
			cfg = loaded
		}
	}

	props.Config = cfg
	return props
}

func (f *Facility) frameworkLabel() string {
	if f.host.FrameworkPackageName != "" {
		return f.host.FrameworkPackageName
	}
	return f.CliPkgName()
}

func decodeString(raw map[string]json.RawMessage, key string, dst *string) {
	if v, ok := raw[key]; ok {
		_ = json.Unmarshal(v, dst)
	}
}
