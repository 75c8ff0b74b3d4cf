package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// LoadPluginConfig completes a plugin's configuration. When the config names a
// ConfigurationModule, that file (json, yaml or toml) is read relative to
// pluginDir and its values replace those from the descriptor. Defaults are
// applied last.
func (l *Loader) LoadPluginConfig(pluginDir string, cfg *cli.PluginConfig) (*cli.PluginConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("plugin config is nil")
	}
	merged := copyPluginConfig(cfg)

	if module := strings.TrimSpace(cfg.ConfigurationModule); module != "" {
		path := module
		if !filepath.IsAbs(path) {
			path = filepath.Join(pluginDir, path)
		}

		v := viper.New()
		v.SetFs(l.fs)
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration module %s: %w", path, err)
		}
		if err := v.Unmarshal(merged, func(dc *mapstructure.DecoderConfig) {
			dc.TagName = "yaml"
		}); err != nil {
			return nil, fmt.Errorf("failed to decode configuration module %s: %w", path, err)
		}
	}

	ApplyPluginDefaults(merged)
	return merged, nil
}

// ApplyPluginDefaults fills values a plugin may leave out.
func ApplyPluginDefaults(cfg *cli.PluginConfig) {
	if cfg == nil {
		return
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.RootCommandDescription = strings.TrimSpace(cfg.RootCommandDescription)
	if cfg.PluginSummary == "" {
		cfg.PluginSummary = firstLine(cfg.RootCommandDescription)
	}

	aliases := make([]string, 0, len(cfg.PluginAliases))
	seen := make(map[string]bool)
	for _, a := range cfg.PluginAliases {
		a = strings.TrimSpace(a)
		if a == "" || seen[strings.ToLower(a)] {
			continue
		}
		seen[strings.ToLower(a)] = true
		aliases = append(aliases, a)
	}
	cfg.PluginAliases = aliases

	cfg.Overrides.CredentialManager = strings.TrimSpace(cfg.Overrides.CredentialManager)
}

// MergeDefaults applies built-in defaults to the host configuration.
func MergeDefaults(host *cli.HostConfig) error {
	if host == nil {
		return fmt.Errorf("config is nil")
	}
	if host.BinName == "" {
		return fmt.Errorf("binName is required")
	}

	if host.PackageName == "" {
		host.PackageName = host.BinName
	}
	if host.ProductDisplayName == "" {
		host.ProductDisplayName = host.BinName
	}
	if host.EnvVariablePrefix == "" {
		host.EnvVariablePrefix = EnvPrefixFor(host.BinName)
	}
	if host.Version == "" {
		host.Version = "0.0.0"
	}
	if host.Name == "" {
		host.Name = host.BinName
	}
	if host.Definitions == nil {
		host.Definitions = []*cli.CommandDefinition{}
	}
	ApplyPluginDefaults(&host.PluginConfig)
	return nil
}

// copyPluginConfig returns a copy whose top-level slices can be replaced
// without touching the original.
func copyPluginConfig(src *cli.PluginConfig) *cli.PluginConfig {
	dst := *src
	if src.PluginAliases != nil {
		dst.PluginAliases = append([]string(nil), src.PluginAliases...)
	}
	if src.Definitions != nil {
		dst.Definitions = make([]*cli.CommandDefinition, len(src.Definitions))
		for i, d := range src.Definitions {
			dst.Definitions[i] = d.Clone()
		}
	}
	if src.CommandModuleGlobs != nil {
		dst.CommandModuleGlobs = append([]string(nil), src.CommandModuleGlobs...)
	}
	if src.Profiles != nil {
		dst.Profiles = append([]*cli.ProfileTypeConfiguration(nil), src.Profiles...)
	}
	return &dst
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
