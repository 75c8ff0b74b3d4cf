// Package builder converts a resolved command definition tree into a Cobra
// command tree.
//
// Every runnable command resolves its option values through an
// options.Resolver before its handler runs. Handlers are either Go functions
// registered by name or external plugin executables run by a
// plugin.Executor.
package builder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/options"
	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/CliForge/pluginhost/pkg/profiles"
	"github.com/CliForge/pluginhost/pkg/secrets"
	"github.com/spf13/cobra"
)

// ProfileLoader loads the profiles a command depends on.
type ProfileLoader interface {
	LoadForCommand(dep *cli.ProfileDependency, selected map[string]string) ([]*profiles.Profile, error)
}

// BuilderConfig configures command building behavior.
type BuilderConfig struct {
	// Resolver computes option values. Required.
	Resolver *options.Resolver
	// Profiles supplies profile values. Commands with a profile dependency
	// resolve without profiles when it is nil.
	Profiles ProfileLoader
	// Handlers are the Go handlers, keyed by the handler name used in
	// command definitions.
	Handlers map[string]HandlerFunc
	// Executor runs handlers that are not registered Go handlers.
	Executor *plugin.Executor
	// Censor masks secret argument values in debug logs.
	Censor *secrets.Censor
	Logger *slog.Logger
}

// Builder builds Cobra commands from a command definition tree.
type Builder struct {
	config     *BuilderConfig
	commandMap map[string]*cobra.Command
}

// NewBuilder creates a new command builder.
func NewBuilder(config *BuilderConfig) *Builder {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Handlers == nil {
		config.Handlers = make(map[string]HandlerFunc)
	}
	if config.Censor == nil {
		config.Censor = secrets.NewCensor()
	}
	return &Builder{
		config:     config,
		commandMap: make(map[string]*cobra.Command),
	}
}

// Build converts root and its descendants. The returned root command has no
// handler of its own.
func (b *Builder) Build(root *cli.CommandDefinition) (*cobra.Command, error) {
	if root == nil {
		return nil, fmt.Errorf("command tree is nil")
	}
	if b.config.Resolver == nil {
		return nil, fmt.Errorf("an option resolver is required")
	}

	rootCmd := &cobra.Command{
		Use:           root.Name,
		Short:         summaryOf(root),
		Long:          root.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	b.commandMap[""] = rootCmd

	for _, child := range root.Children {
		cmd, err := b.buildCommand(child, []string{root.Name})
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(cmd)
	}
	return rootCmd, nil
}

// buildCommand converts one node and its children. parents is the path of
// command names above def.
func (b *Builder) buildCommand(def *cli.CommandDefinition, parents []string) (*cobra.Command, error) {
	path := append(append([]string(nil), parents...), def.Name)

	cmd := &cobra.Command{
		Use:     useLine(def),
		Aliases: def.Aliases,
		Short:   summaryOf(def),
		Long:    def.Description,
		Example: examplesOf(def, path),
		Annotations: map[string]string{
			"path": strings.Join(path[1:], " "),
		},
	}
	b.commandMap[cmd.Annotations["path"]] = cmd

	if def.IsGroup() {
		for _, child := range def.Children {
			sub, err := b.buildCommand(child, path)
			if err != nil {
				return nil, err
			}
			cmd.AddCommand(sub)
		}
		return cmd, nil
	}

	cmd.Annotations["handler"] = def.Handler
	cmd.Args = cobra.MaximumNArgs(len(def.Positionals))
	if err := addOptionFlags(cmd, def); err != nil {
		return nil, fmt.Errorf("failed to add flags for %s: %w", strings.Join(path, " "), err)
	}

	handler, err := b.handlerFor(def)
	if err != nil {
		return nil, err
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return b.run(c, def, path, args, handler)
	}
	return cmd, nil
}

// GetCommandByPath retrieves a command by its space separated path below the
// root, e.g. "plugins list".
func (b *Builder) GetCommandByPath(path string) (*cobra.Command, bool) {
	cmd, ok := b.commandMap[path]
	return cmd, ok
}

func useLine(def *cli.CommandDefinition) string {
	var sb strings.Builder
	sb.WriteString(def.Name)
	for _, p := range def.Positionals {
		if p.Required {
			fmt.Fprintf(&sb, " <%s>", p.Name)
		} else {
			fmt.Fprintf(&sb, " [%s]", p.Name)
		}
	}
	return sb.String()
}

func summaryOf(def *cli.CommandDefinition) string {
	if def.Summary != "" {
		return def.Summary
	}
	if i := strings.IndexByte(def.Description, '\n'); i >= 0 {
		return def.Description[:i]
	}
	return def.Description
}

func examplesOf(def *cli.CommandDefinition, path []string) string {
	if len(def.Examples) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, ex := range def.Examples {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "  # %s\n  %s %s", ex.Description, strings.Join(path, " "), ex.Options)
	}
	return sb.String()
}

// PreparationError reports that a command's input could not be resolved.
// The handler did not run.
type PreparationError struct {
	Err error
}

func (e *PreparationError) Error() string {
	return "Command preparation failed!\n" + e.Err.Error()
}

func (e *PreparationError) Unwrap() error {
	return e.Err
}

// ExitError reports a handler that finished with a non-zero exit code.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command '%s' failed with exit code %d", e.Command, e.Code)
}
