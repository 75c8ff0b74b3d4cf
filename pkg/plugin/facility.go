package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCliCmdName = "YourBaseCliName"
	defaultCliPkgName = "NoNameInCliPkgJson"

	// DescriptorFile is the package descriptor inside each plugin directory.
	DescriptorFile = "package.json"
)

// HostInfo identifies the host CLI to the plugins it loads.
type HostInfo struct {
	// CliCmdName is the command users type to run the host.
	CliCmdName string
	// CliPackageName is the package name plugins list as a peer dependency.
	CliPackageName string
	// CliVersion is the host's version.
	CliVersion string
	// FrameworkPackageName is the framework package plugins depend on.
	FrameworkPackageName string
	// FrameworkVersion is the framework's version.
	FrameworkVersion string
	// ConfigKey is the descriptor property holding the plugin's configuration.
	ConfigKey string
}

// ConfigLoader loads the rest of a plugin's configuration and applies defaults.
type ConfigLoader interface {
	LoadPluginConfig(pluginDir string, cfg *cli.PluginConfig) (*cli.PluginConfig, error)
}

// ConfigValidator checks a plugin configuration against its schema.
type ConfigValidator interface {
	ValidatePluginConfig(cfg *cli.PluginConfig) error
}

// ProfileRegistrar owns the set of known profile types.
type ProfileRegistrar interface {
	ProfileTypes() []string
	AddProfiles(profiles []*cli.ProfileTypeConfiguration) error
}

// Paths locates plugin files under the CLI home directory.
type Paths struct {
	// Root holds the registry and installed plugins.
	Root string
	// RegistryFile is the plugins.json file.
	RegistryFile string
	// InstallRoot contains one directory per installed plugin.
	InstallRoot string
}

// NewPaths returns the plugin paths under home.
func NewPaths(home string) Paths {
	root := filepath.Join(home, "plugins")
	return Paths{
		Root:         root,
		RegistryFile: filepath.Join(root, "plugins.json"),
		InstallRoot:  filepath.Join(root, "installed"),
	}
}

// Options configures a Facility.
type Options struct {
	Fs              afero.Fs
	Paths           Paths
	Host            HostInfo
	Issues          IssueStore
	Loader          ModuleLoader
	ConfigLoader    ConfigLoader
	ConfigValidator ConfigValidator
	Combiner        cli.TreeCombiner
	Profiles        ProfileRegistrar
	VersionPolicy   VersionPolicy
	// Concurrency bounds parallel config reads. Zero means 4.
	Concurrency int
	Logger      *slog.Logger
}

// Facility discovers, validates and merges plugins into the host's command
// tree.
type Facility struct {
	mu sync.Mutex

	fs            afero.Fs
	paths         Paths
	host          HostInfo
	issues        IssueStore
	loader        ModuleLoader
	cfgLoader     ConfigLoader
	cfgValidator  ConfigValidator
	combiner      cli.TreeCombiner
	profiles      ProfileRegistrar
	versionPolicy VersionPolicy
	concurrency   int
	logger        *slog.Logger

	registry     *Registry
	resolvedTree *cli.CommandDefinition
	cfgProps     []*CfgProps
	loadedNames  []string
	merged       map[string]*cli.CommandDefinition
	states       map[string]State
	overrides    Overrides

	overrideIssues map[string][]Issue
}

// New creates a Facility. Missing collaborators get defaults that read from
// the real filesystem and accept every configuration.
func New(opts Options) *Facility {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Issues == nil {
		opts.Issues = NewMemoryIssueStore()
	}
	if opts.Loader == nil {
		opts.Loader = NewFSModuleLoader(opts.Fs)
	}
	if opts.Combiner == nil {
		opts.Combiner = cli.NewDefinitionResolver(opts.Fs)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Host.ConfigKey == "" {
		opts.Host.ConfigKey = "pluginhost"
	}

	return &Facility{
		fs:            opts.Fs,
		paths:         opts.Paths,
		host:          opts.Host,
		issues:        opts.Issues,
		loader:        opts.Loader,
		cfgLoader:     opts.ConfigLoader,
		cfgValidator:  opts.ConfigValidator,
		combiner:      opts.Combiner,
		profiles:      opts.Profiles,
		versionPolicy: opts.VersionPolicy,
		concurrency:   opts.Concurrency,
		logger:        opts.Logger,
		registry:      NewRegistry(opts.Fs, opts.Paths.RegistryFile),
		merged:        make(map[string]*cli.CommandDefinition),
		states:        make(map[string]State),

		overrideIssues: make(map[string][]Issue),
	}
}

// Issues returns the facility's issue store.
func (f *Facility) Issues() IssueStore {
	return f.issues
}

// Registry returns the plugin registry.
func (f *Facility) Registry() *Registry {
	return f.registry
}

// Paths returns the plugin locations.
func (f *Facility) Paths() Paths {
	return f.paths
}

// CliCmdName returns the host command name used in messages.
func (f *Facility) CliCmdName() string {
	if f.host.CliCmdName == "" {
		return defaultCliCmdName
	}
	return f.host.CliCmdName
}

// CliPkgName returns the host package name plugins depend on.
func (f *Facility) CliPkgName() string {
	if f.host.CliPackageName == "" {
		return defaultCliPkgName
	}
	return f.host.CliPackageName
}

// PluginStates returns a copy of the lifecycle state of each plugin seen.
func (f *Facility) PluginStates() map[string]State {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]State, len(f.states))
	for k, v := range f.states {
		out[k] = v
	}
	return out
}

// CfgProps returns the configuration loaded for every registry entry by
// LoadAllPluginCfgProps, in registry order. Entries that failed to load are
// omitted.
func (f *Facility) CfgProps() []*CfgProps {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*CfgProps, 0, len(f.cfgProps))
	for _, p := range f.cfgProps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Overrides returns the service overrides captured from plugins.
func (f *Facility) Overrides() Overrides {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overrides
}

// ResolvedTree returns the tree plugins are merged into.
func (f *Facility) ResolvedTree() *cli.CommandDefinition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolvedTree
}

// SetResolvedTree replaces the tree plugins are merged into.
func (f *Facility) SetResolvedTree(tree *cli.CommandDefinition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolvedTree = tree
}

// PluginDir returns the install directory of a plugin.
func (f *Facility) PluginDir(pluginName string) string {
	return filepath.Join(f.paths.InstallRoot, pluginName)
}

// formPluginRuntimePath resolves a path declared by a plugin. Relative paths
// are taken from the plugin's install directory.
func (f *Facility) formPluginRuntimePath(pluginName, relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(f.PluginDir(pluginName), relPath)
}

func (f *Facility) exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

func (f *Facility) record(pluginName string, sev IssueSeverity, text string) {
	f.issues.Record(pluginName, sev, text)

	level := slog.LevelDebug
	if sev == SeverityError {
		level = slog.LevelWarn
	}
	f.logger.Log(context.Background(), level, text, "plugin", pluginName, "severity", sev.String())
}

func (f *Facility) setState(pluginName string, s State) {
	f.states[pluginName] = s
}

// LoadAllPluginCfgProps prepares the plugin root and registry file, then reads
// the configuration of every registered plugin. Reads run concurrently and
// results are kept in registry order. Overrides declared by plugins are
// captured here.
func (f *Facility) LoadAllPluginCfgProps(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fs.MkdirAll(f.paths.InstallRoot, 0755); err != nil {
		return fmt.Errorf("failed to create plugin install directory: %w", err)
	}
	if err := f.registry.Ensure(); err != nil {
		return err
	}

	installed, err := f.registry.Load()
	if err != nil {
		return err
	}
	names := installed.Names()

	props := make([]*CfgProps, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			props[i] = f.readPluginConfig(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load plugin configurations: %w", err)
	}

	f.loadedNames = names
	f.cfgProps = props
	f.overrides = Overrides{}
	f.overrideIssues = make(map[string][]Issue)
	for i, name := range names {
		if props[i] == nil {
			f.setState(name, StateRejected)
			continue
		}
		f.setState(name, StateConfigRead)
		f.captureOverrides(props[i])
	}

	f.logger.Debug("loaded plugin configurations", "count", len(names), "registry", f.registry.Path())
	return nil
}

// AddAllPlugins merges every registered plugin into tree, one at a time in
// registry order. A failing plugin is recorded and skipped.
func (f *Facility) AddAllPlugins(tree *cli.CommandDefinition) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resolvedTree = tree

	names := f.loadedNames
	if names == nil {
		installed, err := f.registry.Load()
		if err != nil {
			f.logger.Warn("unable to read plugin registry", "error", err)
			return
		}
		names = installed.Names()
	}

	for _, name := range names {
		f.addPluginIsolated(name)
	}
}

// AddPlugin reads, validates and merges one plugin. It reports whether the
// plugin's command group was added.
func (f *Facility) AddPlugin(pluginName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addPluginIsolated(pluginName)
}

func (f *Facility) addPluginIsolated(pluginName string) (added bool) {
	defer func() {
		if r := recover(); r != nil {
			f.record(pluginName, SeverityError, fmt.Sprintf("Unexpected failure while adding the plug-in. Reason = %v", r))
			f.setState(pluginName, StateRejected)
			added = false
		}
	}()
	return f.addPlugin(pluginName)
}

func (f *Facility) addPlugin(pluginName string) bool {
	f.issues.Remove(pluginName)
	f.restoreOverrideIssues(pluginName)
	f.setState(pluginName, StateDiscovered)

	props := f.readPluginConfig(pluginName)
	if props == nil {
		f.setState(pluginName, StateRejected)
		return false
	}
	f.setState(pluginName, StateConfigRead)

	group, ok := f.combinePluginCmdDefs(pluginName, props)
	if !ok {
		f.setState(pluginName, StateRejected)
		return false
	}

	if !f.validatePlugin(pluginName, props, group) {
		f.setState(pluginName, StateRejected)
		return false
	}
	f.setState(pluginName, StateValidated)

	f.resolveHandlerPaths(pluginName, group)
	if !f.addCmdGrpToResolvedCliCmdTree(pluginName, group) {
		f.setState(pluginName, StateRejected)
		return false
	}
	f.merged[pluginName] = group

	if len(props.Config.Profiles) > 0 && f.profiles != nil {
		if err := safeCall(func() error { return f.profiles.AddProfiles(props.Config.Profiles) }); err != nil {
			f.record(pluginName, SeverityError, fmt.Sprintf(
				"Failed to add profiles for the plug-in named '%s'.\nReason = %s", pluginName, err.Error()))
		}
	}

	f.setState(pluginName, StateAccepted)
	f.logger.Debug("added plugin command group", "plugin", pluginName, "group", group.Name)
	return true
}

// combinePluginCmdDefs builds the plugin's command group from its inline
// definitions and command module globs.
func (f *Facility) combinePluginCmdDefs(pluginName string, props *CfgProps) (*cli.CommandDefinition, bool) {
	cfg := props.Config

	var group *cli.CommandDefinition
	err := safeCall(func() error {
		var err error
		group, err = f.combiner.CombineAllCmdDefs(f.PluginDir(pluginName), cfg.Definitions, cfg.CommandModuleGlobs)
		return err
	})
	if err == nil && group == nil {
		err = fmt.Errorf("no command definitions were produced")
	}
	if err != nil {
		f.record(pluginName, SeverityError, "Failed to combine command definitions. Reason = "+err.Error())
		return nil, false
	}

	group.Name = props.GroupName()
	group.Aliases = cfg.PluginAliases
	group.Summary = cfg.PluginSummary
	group.Description = cfg.RootCommandDescription
	group.Type = cli.CommandTypeGroup
	return group, true
}

// resolveHandlerPaths rewrites relative handler paths to absolute paths under
// the plugin's install directory.
func (f *Facility) resolveHandlerPaths(pluginName string, group *cli.CommandDefinition) {
	group.Walk(func(node *cli.CommandDefinition, _ int) bool {
		if node.Handler != "" {
			node.Handler = f.formPluginRuntimePath(pluginName, node.Handler)
		}
		return true
	})
}

// ValidatePlugin runs a fresh validation pass for one plugin. A command group
// the plugin already merged is set aside during the pass so it does not
// conflict with itself.
func (f *Facility) ValidatePlugin(pluginName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.issues.Remove(pluginName)
	f.restoreOverrideIssues(pluginName)

	props := f.readPluginConfig(pluginName)
	if props == nil {
		return false
	}
	group, ok := f.combinePluginCmdDefs(pluginName, props)
	if !ok {
		return false
	}

	if own, merged := f.merged[pluginName]; merged {
		idx := f.detachChild(own)
		defer f.reattachChild(own, idx)
	}

	var valid bool
	err := safeCall(func() error {
		valid = f.validatePlugin(pluginName, props, group)
		return nil
	})
	if err != nil {
		f.record(pluginName, SeverityError, "The plugin validation failed unexpectedly. Reason = "+err.Error())
		return false
	}
	return valid
}

// RegisteredPlugins returns plugin names from the registry file.
func (f *Facility) RegisteredPlugins() ([]string, error) {
	installed, err := f.registry.Load()
	if err != nil {
		return nil, err
	}
	return installed.Names(), nil
}

// safeCall runs fn and turns a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}
