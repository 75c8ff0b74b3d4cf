// Package runtime wires the host CLI together and runs one invocation.
//
// # Initialization Flow
//
//  1. Load the embedded host configuration, the user config file and the
//     environment
//  2. Validate the host configuration and create the CLI home directories
//  3. Build the base command tree from the host definitions and the
//     built-in groups
//  4. Read every installed plugin's configuration and merge the valid ones
//     into the tree
//  5. Select the credential manager, honoring plugin overrides
//  6. Convert the tree to Cobra commands
//  7. Execute the command and map failures to exit codes
//
// # Example Usage
//
//	//go:embed host.yaml
//	var hostConfig []byte
//
//	func main() {
//	    rt, err := runtime.New(context.Background(), runtime.Options{
//	        CliName:  "sample-cli",
//	        Embedded: hostConfig,
//	    })
//	    if err != nil {
//	        fmt.Fprintln(os.Stderr, err)
//	        os.Exit(1)
//	    }
//	    os.Exit(rt.Execute(context.Background(), os.Args[1:]))
//	}
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CliForge/pluginhost/internal/builder"
	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/config"
	"github.com/CliForge/pluginhost/pkg/credentials"
	"github.com/CliForge/pluginhost/pkg/options"
	"github.com/CliForge/pluginhost/pkg/output"
	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/CliForge/pluginhost/pkg/profiles"
	"github.com/CliForge/pluginhost/pkg/secrets"
	"github.com/CliForge/pluginhost/pkg/webhelp"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// FrameworkPackageName is the name plugins use for this framework in their
// peer dependencies.
const FrameworkPackageName = "github.com/CliForge/pluginhost"

// FrameworkVersion is set at build time with -ldflags.
var FrameworkVersion = "0.1.0"

// Options configures a Runtime.
type Options struct {
	// CliName names the host when the embedded config has no binName.
	CliName  string
	Embedded []byte

	Fs     afero.Fs
	Stdout io.Writer
	Stderr io.Writer
	// LookupEnv replaces os.LookupEnv for option resolution.
	LookupEnv func(string) (string, bool)
	// Handlers are the Go handlers of the host's own commands, keyed by the
	// handler names in the embedded definitions.
	Handlers map[string]builder.HandlerFunc
	// Credentials replaces the credential manager selected from config.
	Credentials credentials.Manager
	// Opener replaces the browser opener used by web-help.
	Opener webhelp.Opener
	// Executable is the host program run by "plugins validate --isolated".
	// Empty means the current executable.
	Executable string
	// Debug forces debug logging. See HasDebugFlag.
	Debug bool
}

// Runtime represents the runtime environment of the host CLI.
type Runtime struct {
	opts   Options
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	loader   *config.Loader
	loaded   *config.LoadedConfig
	host     *cli.HostConfig
	facility *plugin.Facility

	profileRegistry *profiles.Registry
	profileStore    *profiles.Store
	credentials     credentials.Manager
	outputManager   *output.Manager
	webHelp         *webhelp.Manager

	tree    *cli.CommandDefinition
	rootCmd *cobra.Command
}

// New loads configuration and plugins and builds the command tree.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	rt := &Runtime{
		opts:   opts,
		fs:     opts.Fs,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
	if rt.fs == nil {
		rt.fs = afero.NewOsFs()
	}
	if rt.stdout == nil {
		rt.stdout = os.Stdout
	}
	if rt.stderr == nil {
		rt.stderr = os.Stderr
	}

	if err := rt.loadConfig(); err != nil {
		return nil, err
	}
	rt.logger = newLogger(rt.stderr, opts.Debug || strings.EqualFold(rt.loaded.User.LogLevel, "debug"))

	if err := rt.initializeSubsystems(); err != nil {
		return nil, fmt.Errorf("failed to initialize subsystems: %w", err)
	}
	if err := rt.loadPlugins(ctx); err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}
	if err := rt.initializeCredentials(); err != nil {
		return nil, err
	}
	if err := rt.buildCommandTree(); err != nil {
		return nil, fmt.Errorf("failed to build command tree: %w", err)
	}
	return rt, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (rt *Runtime) loadConfig() error {
	rt.loader = config.NewLoader(rt.opts.CliName, rt.opts.Embedded).WithFs(rt.fs)
	loaded, err := rt.loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.NewValidator().Validate(loaded.Host); err != nil {
		return fmt.Errorf("invalid host configuration: %w", err)
	}
	rt.loaded = loaded
	rt.host = loaded.Host
	return nil
}

// initializeSubsystems creates the home directories and the services that do
// not depend on plugins.
func (rt *Runtime) initializeSubsystems() error {
	if err := rt.loader.EnsureHomeDirs(rt.loaded.Home); err != nil {
		return err
	}

	registry, err := profiles.NewRegistry(rt.host.Profiles...)
	if err != nil {
		return fmt.Errorf("failed to register host profile types: %w", err)
	}
	rt.profileRegistry = registry

	rt.outputManager = output.NewManager()
	if format := rt.loaded.User.Output; format != "" && rt.outputManager.IsFormatSupported(format) {
		rt.outputManager.SetDefaultFormat(strings.ToLower(format))
	}

	rt.tree = cli.NewRoot(rt.host.BinName, rt.host.RootCommandDescription)
	for _, def := range rt.host.Definitions {
		rt.tree.Children = append(rt.tree.Children, def.Clone())
	}
	rt.tree.Children = append(rt.tree.Children, rt.builtinDefinitions()...)

	rt.facility = plugin.New(plugin.Options{
		Fs:    rt.fs,
		Paths: plugin.NewPaths(rt.loaded.Home),
		Host: plugin.HostInfo{
			CliCmdName:           rt.host.BinName,
			CliPackageName:       rt.host.PackageName,
			CliVersion:           rt.host.Version,
			FrameworkPackageName: FrameworkPackageName,
			FrameworkVersion:     FrameworkVersion,
		},
		ConfigLoader:    rt.loader,
		ConfigValidator: config.NewValidator(),
		Profiles:        rt.profileRegistry,
		Logger:          rt.logger,
	})

	rt.webHelp = webhelp.NewManager(rt.loaded.Home, webhelp.Options{
		Fs:          rt.fs,
		HostName:    rt.host.PackageName,
		HostVersion: rt.host.Version,
		Registry:    rt.facility.Registry(),
		Opener:      rt.opts.Opener,
		Logger:      rt.logger,
	})
	return nil
}

// loadPlugins reads every plugin's configuration and merges the valid ones.
func (rt *Runtime) loadPlugins(ctx context.Context) error {
	if err := rt.facility.LoadAllPluginCfgProps(ctx); err != nil {
		return err
	}
	rt.facility.AddAllPlugins(rt.tree)
	return nil
}

// initializeCredentials selects the credential manager. A plugin override
// wins over the user's setting.
func (rt *Runtime) initializeCredentials() error {
	credOpts := credentials.Options{
		Service: rt.host.BinName,
		Fs:      rt.fs,
	}
	if rt.opts.Credentials != nil {
		rt.credentials = rt.opts.Credentials
	} else {
		ov := rt.facility.Overrides()
		if ov.CredentialManager == "" {
			ov.CredentialManager = rt.loaded.User.CredentialManager
		}
		mgr, err := credentials.FromOverrides(ov, credOpts)
		if err != nil {
			rt.logger.Warn("falling back to the default credential manager", "error", err)
			if mgr, err = credentials.New("", credOpts); err != nil {
				return fmt.Errorf("failed to create credential manager: %w", err)
			}
		}
		rt.credentials = mgr
	}
	rt.logger.Debug("selected credential manager", "manager", rt.credentials.Name())

	rt.profileStore = profiles.NewStore(rt.fs, filepath.Join(rt.loaded.Home, "profiles"), rt.profileRegistry).
		WithSecureStore(rt.credentials)
	return nil
}

// buildCommandTree converts the resolved tree to Cobra commands.
func (rt *Runtime) buildCommandTree() error {
	var resolverOpts []options.ResolverOption
	if rt.opts.LookupEnv != nil {
		resolverOpts = append(resolverOpts, options.WithLookup(rt.opts.LookupEnv))
	}

	b := builder.NewBuilder(&builder.BuilderConfig{
		Resolver: options.NewResolver(rt.host.EnvVariablePrefix, resolverOpts...),
		Profiles: rt.profileStore,
		Handlers: rt.builtinHandlers(),
		Executor: plugin.NewExecutor(0, rt.host.EnvVariablePrefix+"_CLI_HOME="+rt.loaded.Home),
		Censor:   rt.censor(),
		Logger:   rt.logger,
	})
	root, err := b.Build(rt.tree)
	if err != nil {
		return err
	}
	root.Version = rt.host.Version
	root.SetOut(rt.stdout)
	root.SetErr(rt.stderr)
	// Logging is configured before the tree exists, so callers scan for
	// --debug themselves and pass Options.Debug.
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rt.rootCmd = root
	return nil
}

// censor hides the secure fields of every registered profile type.
func (rt *Runtime) censor() *secrets.Censor {
	c := secrets.NewCensor()
	for _, t := range rt.profileRegistry.ProfileTypes() {
		c.AddFields(rt.profileRegistry.SecureFields(t)...)
	}
	return c
}

// Execute runs the command named by args and returns the process exit code.
func (rt *Runtime) Execute(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] != "plugins" {
		rt.warnBrokenPlugins()
	}

	rt.rootCmd.SetArgs(args)
	err := rt.rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var prep *builder.PreparationError
	var exitErr *builder.ExitError
	switch {
	case errors.As(err, &prep):
		fmt.Fprintln(rt.stderr, prep.Error())
	case errors.As(err, &exitErr):
		rt.logger.Debug("handler failed", "command", exitErr.Command, "code", exitErr.Code)
	default:
		pterm.Error.WithWriter(rt.stderr).Println(err.Error())
	}
	return 1
}

// warnBrokenPlugins tells the user which plugins were left out.
func (rt *Runtime) warnBrokenPlugins() {
	for _, name := range rt.facility.Issues().Plugins() {
		if !rt.facility.Issues().HasError(name) {
			continue
		}
		pterm.Warning.WithWriter(rt.stderr).Printfln(
			"The plug-in '%s' could not be loaded. Run '%s plugins validate %s' for details.",
			name, rt.host.BinName, name)
	}
}

// HasDebugFlag reports whether args request debug logging.
func HasDebugFlag(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "--debug" || a == "--debug=true" {
			return true
		}
	}
	return false
}

// RootCommand returns the Cobra root command.
func (rt *Runtime) RootCommand() *cobra.Command {
	return rt.rootCmd
}

// Tree returns the resolved command tree.
func (rt *Runtime) Tree() *cli.CommandDefinition {
	return rt.tree
}

// Facility returns the plugin management facility.
func (rt *Runtime) Facility() *plugin.Facility {
	return rt.facility
}

// Home returns the resolved CLI home directory.
func (rt *Runtime) Home() string {
	return rt.loaded.Home
}
