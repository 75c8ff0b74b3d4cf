package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CliForge/pluginhost/internal/builder"
	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/CliForge/pluginhost/pkg/profiles"
	"github.com/briandowns/spinner"
	"github.com/pterm/pterm"
)

const (
	handlerPluginsList     = "builtin:plugins-list"
	handlerPluginsValidate = "builtin:plugins-validate"
	handlerProfilesList    = "builtin:profiles-list"
	handlerProfilesCreate  = "builtin:profiles-create"
	handlerProfilesDefault = "builtin:profiles-set-default"
	handlerProfilesDelete  = "builtin:profiles-delete"
	handlerWebHelp         = "builtin:web-help"
)

const validationSpinnerCharSet = 14

// pluginRow is one line of "plugins list".
type pluginRow struct {
	Name     string `json:"name" yaml:"name"`
	Package  string `json:"package" yaml:"package"`
	Version  string `json:"version" yaml:"version"`
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`
	State    string `json:"state" yaml:"state"`
	Errors   int    `json:"errors" yaml:"errors"`
	Warnings int    `json:"warnings" yaml:"warnings"`
}

// profileRow is one line of "profiles list".
type profileRow struct {
	Type    string `json:"type" yaml:"type"`
	Name    string `json:"name" yaml:"name"`
	Default bool   `json:"default" yaml:"default"`
	Updated string `json:"updated,omitempty" yaml:"updated,omitempty"`
}

func (rt *Runtime) outputOption() *cli.OptionDefinition {
	return &cli.OptionDefinition{
		Name:            "output",
		Aliases:         []string{"o"},
		Description:     "Output format",
		Type:            cli.OptionTypeString,
		DefaultValue:    rt.outputManager.DefaultFormat(),
		AllowableValues: rt.outputManager.SupportedFormats(),
	}
}

func typeAndName(typeRequired bool) []*cli.OptionDefinition {
	return []*cli.OptionDefinition{
		{Name: "type", Description: "The profile type", Type: cli.OptionTypeString, Required: typeRequired},
		{Name: "name", Description: "The profile name", Type: cli.OptionTypeString, Required: true},
	}
}

// builtinDefinitions returns the command groups every host carries.
func (rt *Runtime) builtinDefinitions() []*cli.CommandDefinition {
	defs := []*cli.CommandDefinition{
		{
			Name:    "plugins",
			Type:    cli.CommandTypeGroup,
			Summary: "Inspect and validate installed plug-ins",
			Children: []*cli.CommandDefinition{
				{
					Name:        "list",
					Aliases:     []string{"ls"},
					Type:        cli.CommandTypeCommand,
					Summary:     "List installed plug-ins",
					Description: "List the plug-ins in the plug-in registry with the number of problems found while loading each one.",
					Handler:     handlerPluginsList,
					Options:     []*cli.OptionDefinition{rt.outputOption()},
				},
				{
					Name:        "validate",
					Type:        cli.CommandTypeCommand,
					Summary:     "Validate installed plug-ins",
					Description: "Validate one or all installed plug-ins and report the problems found.",
					Handler:     handlerPluginsValidate,
					Positionals: []*cli.OptionDefinition{
						{Name: "plugin", Description: "The plug-in to validate. Omit to validate all plug-ins.", Type: cli.OptionTypeString},
					},
					Options: []*cli.OptionDefinition{
						rt.outputOption(),
						{Name: "isolated", Aliases: []string{"i"}, Description: "Validate in a separate host process", Type: cli.OptionTypeBoolean, DefaultValue: false},
					},
					Examples: []*cli.Example{
						{Description: "Validate every installed plug-in", Options: ""},
						{Description: "Validate one plug-in in a fresh host process", Options: "my-plugin --isolated"},
					},
				},
			},
		},
		{
			Name:    "profiles",
			Type:    cli.CommandTypeGroup,
			Summary: "Manage configuration profiles",
			Children: []*cli.CommandDefinition{
				{
					Name:        "list",
					Aliases:     []string{"ls"},
					Type:        cli.CommandTypeCommand,
					Summary:     "List profiles",
					Handler:     handlerProfilesList,
					Positionals: []*cli.OptionDefinition{{Name: "type", Description: "Only list profiles of this type", Type: cli.OptionTypeString}},
					Options:     []*cli.OptionDefinition{rt.outputOption()},
				},
				{
					Name:        "create",
					Type:        cli.CommandTypeCommand,
					Summary:     "Create a profile",
					Handler:     handlerProfilesCreate,
					Positionals: typeAndName(true),
					Options: []*cli.OptionDefinition{
						{Name: "field", Aliases: []string{"f"}, Description: "A field as key=value. Repeat for more fields.", Type: cli.OptionTypeArray},
						{Name: "overwrite", Description: "Replace an existing profile", Type: cli.OptionTypeBoolean, DefaultValue: false},
					},
					Examples: []*cli.Example{
						{Description: "Create a banana profile", Options: "banana main --field color=yellow --field sides=2"},
					},
				},
				{
					Name:        "set-default",
					Type:        cli.CommandTypeCommand,
					Summary:     "Make a profile the default of its type",
					Handler:     handlerProfilesDefault,
					Positionals: typeAndName(true),
				},
				{
					Name:        "delete",
					Aliases:     []string{"rm"},
					Type:        cli.CommandTypeCommand,
					Summary:     "Delete a profile",
					Handler:     handlerProfilesDelete,
					Positionals: typeAndName(true),
				},
			},
		},
	}

	if rt.host.WebHelp {
		defs = append(defs, &cli.CommandDefinition{
			Name:        "web-help",
			Type:        cli.CommandTypeCommand,
			Summary:     "Open help in a browser",
			Description: "Open the web help, regenerating it when the host or its plug-ins changed.",
			Handler:     handlerWebHelp,
			Positionals: []*cli.OptionDefinition{
				{Name: "command", Description: "Open help for this command, e.g. \"plugins list\"", Type: cli.OptionTypeString},
			},
		})
	}
	return defs
}

func (rt *Runtime) builtinHandlers() map[string]builder.HandlerFunc {
	handlers := map[string]builder.HandlerFunc{
		handlerPluginsList:     rt.pluginsList,
		handlerPluginsValidate: rt.pluginsValidate,
		handlerProfilesList:    rt.profilesList,
		handlerProfilesCreate:  rt.profilesCreate,
		handlerProfilesDefault: rt.profilesSetDefault,
		handlerProfilesDelete:  rt.profilesDelete,
		handlerWebHelp:         rt.openWebHelp,
	}
	for name, fn := range rt.opts.Handlers {
		handlers[name] = fn
	}
	return handlers
}

func (rt *Runtime) pluginsList(_ context.Context, inv *builder.Invocation) error {
	out := inv.Command.OutOrStdout()
	installed, err := rt.facility.Registry().Load()
	if err != nil {
		return err
	}

	format := inv.Args.String("output")
	if len(installed) == 0 && format == "table" {
		_, err := fmt.Fprintln(out, "No plug-ins are installed.")
		return err
	}

	states := rt.facility.PluginStates()
	issues := rt.facility.Issues()
	rows := make([]pluginRow, 0, len(installed))
	for _, ip := range installed {
		row := pluginRow{
			Name:     ip.Name,
			Package:  ip.Entry.Package,
			Version:  ip.Entry.Version,
			Registry: ip.Entry.Registry,
			State:    states[ip.Name].String(),
		}
		for _, is := range issues.IssuesFor(ip.Name) {
			if is.Severity == plugin.SeverityError {
				row.Errors++
			} else {
				row.Warnings++
			}
		}
		rows = append(rows, row)
	}
	return rt.outputManager.Format(out, rows, format)
}

func (rt *Runtime) pluginsValidate(ctx context.Context, inv *builder.Invocation) error {
	out := inv.Command.OutOrStdout()
	format := inv.Args.String("output")

	var names []string
	if name := inv.Args.String("plugin"); name != "" {
		names = []string{name}
	} else {
		var err error
		if names, err = rt.facility.RegisteredPlugins(); err != nil {
			return err
		}
	}

	var validator plugin.ExternalValidator = plugin.NewInProcessValidator(rt.facility)
	var spin *spinner.Spinner
	if inv.Args.Bool("isolated") {
		validator = plugin.NewProcessValidator(rt.opts.Executable).
			WithEnv(rt.host.EnvVariablePrefix + "_CLI_HOME=" + rt.loaded.Home)
		if format != "json" {
			spin = spinner.New(spinner.CharSets[validationSpinnerCharSet], 100*time.Millisecond,
				spinner.WithWriter(inv.Command.ErrOrStderr()))
		}
	}

	reports := make([]*plugin.ValidationReport, 0, len(names))
	failed := false
	for _, name := range names {
		if spin != nil {
			spin.Suffix = fmt.Sprintf(" Validating plug-in '%s'", name)
			spin.Start()
		}
		report, err := validator.Run(ctx, name)
		if spin != nil {
			spin.Stop()
		}
		if err != nil {
			report = &plugin.ValidationReport{
				Plugin: name,
				Issues: []plugin.Issue{{Severity: plugin.SeverityError, Text: err.Error()}},
			}
		}
		if !report.Valid || hasErrorIssue(report.Issues) {
			failed = true
		}
		reports = append(reports, report)
	}

	if format == "json" {
		if err := rt.outputManager.Format(out, &plugin.ValidateResponse{Success: !failed, Data: reports}, "json"); err != nil {
			return err
		}
	} else if len(names) == 0 {
		if _, err := fmt.Fprintln(out, "No plug-ins are installed."); err != nil {
			return err
		}
	} else {
		for _, report := range reports {
			printValidationReport(out, report)
		}
	}

	if failed {
		return fmt.Errorf("problems were detected while validating plug-ins")
	}
	return nil
}

func hasErrorIssue(issues []plugin.Issue) bool {
	for _, is := range issues {
		if is.Severity == plugin.SeverityError {
			return true
		}
	}
	return false
}

func printValidationReport(w io.Writer, report *plugin.ValidationReport) {
	fmt.Fprintf(w, "\n_____ Validation results for plug-in '%s' _____\n", report.Plugin)
	for _, is := range report.Issues {
		if is.Severity == plugin.SeverityError {
			pterm.Error.WithWriter(w).Println(is.Text)
		} else {
			pterm.Warning.WithWriter(w).Println(is.Text)
		}
	}
	switch {
	case hasErrorIssue(report.Issues) || !report.Valid:
		pterm.Error.WithWriter(w).Println("This plug-in has problems that prevent it from being used.")
	case len(report.Issues) > 0:
		pterm.Success.WithWriter(w).Println("This plug-in was validated with warnings. It can still be used.")
	default:
		pterm.Success.WithWriter(w).Println("This plug-in was successfully validated.")
	}
}

func (rt *Runtime) profilesList(_ context.Context, inv *builder.Invocation) error {
	types := rt.profileRegistry.ProfileTypes()
	if t := inv.Args.String("type"); t != "" {
		if _, ok := rt.profileRegistry.Config(t); !ok {
			return fmt.Errorf("unknown profile type '%s'", t)
		}
		types = []string{t}
	}

	rows := make([]profileRow, 0)
	for _, t := range types {
		list, def, err := rt.profileStore.List(t)
		if err != nil {
			return err
		}
		for _, p := range list {
			row := profileRow{Type: t, Name: p.Name, Default: p.Name == def}
			if !p.UpdatedAt.IsZero() {
				row.Updated = p.UpdatedAt.Format(time.RFC3339)
			}
			rows = append(rows, row)
		}
	}

	format := inv.Args.String("output")
	if len(rows) == 0 && format == "table" {
		_, err := fmt.Fprintln(inv.Command.OutOrStdout(), "No profiles were found.")
		return err
	}
	return rt.outputManager.Format(inv.Command.OutOrStdout(), rows, format)
}

func (rt *Runtime) profilesCreate(_ context.Context, inv *builder.Invocation) error {
	profileType, name := inv.Args.String("type"), inv.Args.String("name")
	if _, ok := rt.profileRegistry.Config(profileType); !ok {
		return fmt.Errorf("unknown profile type '%s'", profileType)
	}

	raw := make(map[string]string)
	for _, f := range inv.Args.Strings("field") {
		key, value, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid field '%s': expected key=value", f)
		}
		raw[strings.TrimSpace(key)] = value
	}
	fields, err := rt.profileRegistry.CoerceFields(profileType, raw)
	if err != nil {
		return err
	}

	p := profiles.NewProfile(profileType, name)
	for k, v := range fields {
		p.Set(k, v)
	}
	if err := rt.profileStore.Save(p, inv.Args.Bool("overwrite")); err != nil {
		return err
	}
	pterm.Success.WithWriter(inv.Command.OutOrStdout()).Printfln("Profile '%s' of type '%s' was saved.", name, profileType)
	return nil
}

func (rt *Runtime) profilesSetDefault(_ context.Context, inv *builder.Invocation) error {
	profileType, name := inv.Args.String("type"), inv.Args.String("name")
	if err := rt.profileStore.SetDefault(profileType, name); err != nil {
		return err
	}
	pterm.Success.WithWriter(inv.Command.OutOrStdout()).Printfln("Profile '%s' is now the default '%s' profile.", name, profileType)
	return nil
}

func (rt *Runtime) profilesDelete(_ context.Context, inv *builder.Invocation) error {
	profileType, name := inv.Args.String("type"), inv.Args.String("name")
	if err := rt.profileStore.Delete(profileType, name); err != nil {
		return err
	}
	pterm.Success.WithWriter(inv.Command.OutOrStdout()).Printfln("Profile '%s' of type '%s' was deleted.", name, profileType)
	return nil
}

func (rt *Runtime) openWebHelp(_ context.Context, inv *builder.Invocation) error {
	path := strings.Fields(inv.Args.String("command"))
	if len(path) == 0 {
		return rt.webHelp.OpenRootHelp(rt.tree)
	}
	if rt.tree.Find(path...) == nil {
		return fmt.Errorf("unknown command '%s'", strings.Join(path, " "))
	}
	return rt.webHelp.OpenHelp(rt.tree, rt.host.BinName+"_"+strings.Join(path, "_"))
}
