package builder

import (
	"fmt"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	annotationOption  = "option"
	annotationProfile = "profile-type"
)

// addOptionFlags registers one flag per declared option plus a hidden flag
// per long alias and a --<type>-profile flag per profile dependency.
//
// Flags carry no defaults. Defaults are applied by the resolver so that a
// value the user did not type never shadows the environment or a profile.
// String, number and boolean options are registered as string flags and
// converted by the resolver, which reports invalid values as syntax errors.
func addOptionFlags(cmd *cobra.Command, def *cli.CommandDefinition) error {
	flags := cmd.Flags()

	for _, opt := range def.Options {
		if opt == nil || opt.Name == "" {
			continue
		}
		if flags.Lookup(opt.Name) != nil {
			return fmt.Errorf("duplicate option '%s'", opt.Name)
		}

		shorthand := ""
		var long []string
		for _, a := range opt.Aliases {
			switch {
			case len(a) == 1 && shorthand == "" && flags.ShorthandLookup(a) == nil:
				shorthand = a
			case len(a) > 1 && a != opt.Name && flags.Lookup(a) == nil:
				long = append(long, a)
			}
		}

		addTypedFlag(flags, opt, opt.Name, shorthand, describe(opt))
		_ = flags.SetAnnotation(opt.Name, annotationOption, []string{opt.Name})

		for _, a := range long {
			addTypedFlag(flags, opt, a, "", fmt.Sprintf("Alias of --%s", opt.Name))
			_ = flags.SetAnnotation(a, annotationOption, []string{opt.Name})
			_ = flags.MarkHidden(a)
		}
	}

	for _, t := range def.Profile.Types() {
		name := t + "-profile"
		if flags.Lookup(name) != nil {
			continue
		}
		flags.String(name, "", fmt.Sprintf("The name of a (%s) profile to load for this command execution.", t))
		_ = flags.SetAnnotation(name, annotationProfile, []string{t})
	}
	return nil
}

func addTypedFlag(flags *pflag.FlagSet, opt *cli.OptionDefinition, name, shorthand, usage string) {
	switch opt.Type {
	case cli.OptionTypeArray:
		flags.StringArrayP(name, shorthand, nil, usage)
	case cli.OptionTypeBoolean:
		flags.StringP(name, shorthand, "", usage)
		flags.Lookup(name).NoOptDefVal = "true"
	default:
		flags.StringP(name, shorthand, "", usage)
	}
}

func describe(opt *cli.OptionDefinition) string {
	var sb strings.Builder
	sb.WriteString(opt.Description)
	if len(opt.AllowableValues) > 0 {
		fmt.Fprintf(&sb, " (allowed: %s)", strings.Join(opt.AllowableValues, ", "))
	}
	if opt.DefaultValue != nil {
		fmt.Fprintf(&sb, " (default: %v)", opt.DefaultValue)
	}
	if opt.Required {
		sb.WriteString(" (required)")
	}
	return strings.TrimSpace(sb.String())
}

// explicitValues collects what the user typed: changed flags keyed by the
// option they belong to and the positional arguments in declaration order.
// When an option and one of its aliases are both given, the option wins.
func explicitValues(cmd *cobra.Command, def *cli.CommandDefinition, args []string) map[string]any {
	explicit := make(map[string]any)

	for i, p := range def.Positionals {
		if i < len(args) {
			explicit[p.Name] = args[i]
		}
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		owner, ok := f.Annotations[annotationOption]
		if !ok || len(owner) == 0 {
			return
		}
		name := owner[0]
		if _, seen := explicit[name]; seen && f.Name != name {
			return
		}
		if sa, ok := f.Value.(pflag.SliceValue); ok {
			explicit[name] = sa.GetSlice()
			return
		}
		explicit[name] = f.Value.String()
	})
	return explicit
}

// selectedProfiles maps each profile type to the name given with its
// --<type>-profile flag.
func selectedProfiles(cmd *cobra.Command) map[string]string {
	selected := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if t, ok := f.Annotations[annotationProfile]; ok && len(t) > 0 {
			selected[t[0]] = f.Value.String()
		}
	})
	return selected
}
