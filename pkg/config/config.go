// Package config loads the host CLI configuration and the configuration
// blocks of installed plugins, applies their defaults and validates them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// UserConfig holds per-user settings read from the user config file and the
// environment.
type UserConfig struct {
	Home              string `yaml:"home,omitempty"`
	LogLevel          string `yaml:"logLevel,omitempty"`
	Output            string `yaml:"output,omitempty"`
	CredentialManager string `yaml:"credentialManager,omitempty"`
}

// LoadedConfig is the result of loading every configuration source.
type LoadedConfig struct {
	Host *cli.HostConfig
	User *UserConfig
	// Home is the resolved CLI home directory.
	Home string
	// UserConfigPath is where the user config was looked for.
	UserConfigPath string
}

// Loader handles loading configurations from various sources.
type Loader struct {
	cliName   string
	embedded  []byte
	envPrefix string
	fs        afero.Fs
}

// NewLoader creates a loader for the host described by the embedded YAML.
func NewLoader(cliName string, embedded []byte) *Loader {
	return &Loader{
		cliName:   cliName,
		embedded:  embedded,
		envPrefix: EnvPrefixFor(cliName),
		fs:        afero.NewOsFs(),
	}
}

// WithFs replaces the filesystem used for user and plugin files.
func (l *Loader) WithFs(fs afero.Fs) *Loader {
	l.fs = fs
	return l
}

// EnvPrefix returns the prefix of every environment variable the host reads.
func (l *Loader) EnvPrefix() string {
	return l.envPrefix
}

// EnvPrefixFor derives an environment variable prefix from a CLI name.
func EnvPrefixFor(cliName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(cliName))
}

// LoadConfig loads and merges configuration from all sources.
// Priority: ENV > User Config > Embedded > Default
func (l *Loader) LoadConfig() (*LoadedConfig, error) {
	host, err := l.loadEmbeddedConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded config: %w", err)
	}
	if err := MergeDefaults(host); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if host.EnvVariablePrefix != "" {
		l.envPrefix = host.EnvVariablePrefix
	}

	userPath := l.getUserConfigPath()
	user, err := l.loadUserConfig(userPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	return &LoadedConfig{
		Host:           host,
		User:           user,
		Home:           l.resolveHome(host, user),
		UserConfigPath: userPath,
	}, nil
}

// loadEmbeddedConfig parses the host configuration compiled into the binary.
func (l *Loader) loadEmbeddedConfig() (*cli.HostConfig, error) {
	if len(l.embedded) == 0 {
		return nil, fmt.Errorf("no embedded configuration provided")
	}

	var host cli.HostConfig
	if err := yaml.Unmarshal(l.embedded, &host); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}
	if host.BinName == "" {
		host.BinName = l.cliName
	}
	return &host, nil
}

// loadUserConfig reads the optional user config file and layers environment
// variables on top of it.
func (l *Loader) loadUserConfig(path string) (*UserConfig, error) {
	v := viper.New()
	v.SetFs(l.fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if ok, _ := afero.Exists(l.fs, path); ok {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	envMappings := map[string]string{
		"home":              "CLI_HOME",
		"logLevel":          "LOG_LEVEL",
		"output":            "OUTPUT_FORMAT",
		"credentialManager": "CREDENTIAL_MANAGER",
	}
	for key, env := range envMappings {
		if err := v.BindEnv(key, l.envPrefix+"_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return &UserConfig{
		Home:              v.GetString("home"),
		LogLevel:          v.GetString("logLevel"),
		Output:            v.GetString("output"),
		CredentialManager: v.GetString("credentialManager"),
	}, nil
}

// getUserConfigPath returns the XDG-compliant user config file path.
func (l *Loader) getUserConfigPath() string {
	if customPath := os.Getenv(l.envPrefix + "_CONFIG"); customPath != "" {
		return customPath
	}
	return filepath.Join(xdg.ConfigHome, l.cliName, "config.yaml")
}

// resolveHome picks the CLI home: the environment or user file first, then
// the host's default, then the XDG data directory.
func (l *Loader) resolveHome(host *cli.HostConfig, user *UserConfig) string {
	if user != nil && user.Home != "" {
		return expandHome(user.Home)
	}
	if host.DefaultHome != "" {
		return expandHome(host.DefaultHome)
	}
	return filepath.Join(xdg.DataHome, l.cliName)
}

func expandHome(p string) string {
	if p == "~" {
		return xdg.Home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(xdg.Home, p[2:])
	}
	return p
}

// EnsureHomeDirs creates the directories the host writes under home.
func (l *Loader) EnsureHomeDirs(home string) error {
	dirs := []string{
		filepath.Join(home, "plugins", "installed"),
		filepath.Join(home, "profiles"),
		filepath.Join(home, "web-help"),
	}
	for _, dir := range dirs {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SaveUserConfig writes user configuration to the XDG config directory.
func (l *Loader) SaveUserConfig(config *UserConfig) error {
	configPath := l.getUserConfigPath()

	if err := l.fs.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(l.fs, configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
