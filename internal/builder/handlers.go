package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/options"
	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/CliForge/pluginhost/pkg/profiles"
	"github.com/spf13/cobra"
)

// Invocation is everything a Go handler receives.
type Invocation struct {
	Command    *cobra.Command
	Definition *cli.CommandDefinition
	// Path is the full command path starting with the root name.
	Path     []string
	Args     *options.Arguments
	Profiles []*profiles.Profile
}

// HandlerFunc implements a command in Go.
type HandlerFunc func(ctx context.Context, inv *Invocation) error

// handlerFor picks the Go handler registered under def.Handler, falling back
// to running def.Handler as an external program.
func (b *Builder) handlerFor(def *cli.CommandDefinition) (HandlerFunc, error) {
	if fn, ok := b.config.Handlers[def.Handler]; ok {
		return fn, nil
	}
	if def.Handler == "" {
		return nil, fmt.Errorf("command '%s' has no handler", def.Name)
	}
	if !filepath.IsAbs(def.Handler) {
		return nil, fmt.Errorf("no handler named '%s' is registered for command '%s'", def.Handler, def.Name)
	}
	return b.executeExternal, nil
}

// run resolves the invocation's input and calls the handler.
func (b *Builder) run(cmd *cobra.Command, def *cli.CommandDefinition, path, args []string, handler HandlerFunc) error {
	in := options.InputFor(def)
	in.Explicit = explicitValues(cmd, def, args)

	var loaded []*profiles.Profile
	if def.Profile != nil && b.config.Profiles != nil {
		var err error
		loaded, err = b.config.Profiles.LoadForCommand(def.Profile, selectedProfiles(cmd))
		if err != nil {
			return &PreparationError{Err: err}
		}
		for _, p := range loaded {
			in.Profiles = append(in.Profiles, options.ProfileFields(p.Fields))
		}
	}

	resolved, err := b.config.Resolver.Resolve(in)
	if err != nil {
		return &PreparationError{Err: err}
	}

	b.config.Logger.Debug("running command",
		"command", strings.Join(path, " "),
		"handler", def.Handler,
		"arguments", b.config.Censor.Values(resolved.Values))

	return handler(cmd.Context(), &Invocation{
		Command:    cmd,
		Definition: def,
		Path:       path,
		Args:       resolved,
		Profiles:   loaded,
	})
}

// executeExternal runs a plugin handler program with the resolved arguments
// as a JSON request on stdin.
func (b *Builder) executeExternal(ctx context.Context, inv *Invocation) error {
	if b.config.Executor == nil {
		return fmt.Errorf("no executor is configured for external handler %s", inv.Definition.Handler)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := &plugin.HandlerRequest{
		Command:   inv.Path[1:],
		Arguments: inv.Args.Values,
		Sources:   make(map[string]string, len(inv.Args.Sources)),
	}
	for name, src := range inv.Args.Sources {
		req.Sources[name] = src.String()
	}

	res, err := b.config.Executor.Run(ctx, inv.Definition.Handler, req)
	if err != nil {
		return err
	}
	res.Print(inv.Command.OutOrStdout(), inv.Command.ErrOrStderr())
	if !res.Success() {
		return &ExitError{Command: strings.Join(inv.Path, " "), Code: res.ExitCode}
	}
	return nil
}
