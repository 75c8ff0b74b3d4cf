package options

import (
	"errors"
	"strings"
	"testing"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) ResolverOption {
	return WithLookup(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
}

func bananaInput() *Input {
	return &Input{
		Positionals: []*cli.OptionDefinition{
			{Name: "color", Type: cli.OptionTypeString},
		},
		Options: []*cli.OptionDefinition{
			{Name: "description", Type: cli.OptionTypeString},
			{Name: "moldType", Type: cli.OptionTypeString},
			{Name: "sweetness", Type: cli.OptionTypeString, DefaultValue: "mild"},
			{Name: "ripe", Type: cli.OptionTypeBoolean, DefaultValue: false},
			{Name: "sides", Type: cli.OptionTypeNumber},
			{Name: "names", Type: cli.OptionTypeArray},
		},
		Explicit: map[string]any{},
	}
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		explicit   map[string]any
		env        map[string]string
		profile    ProfileFields
		wantValue  any
		wantSource Source
	}{
		{
			name:       "default only",
			wantValue:  "mild",
			wantSource: SourceDefault,
		},
		{
			name:       "profile over default",
			profile:    ProfileFields{"sweetness": "sour"},
			wantValue:  "sour",
			wantSource: SourceProfile,
		},
		{
			name:       "env over profile",
			env:        map[string]string{"CMD_CLI_OPT_SWEETNESS": "very very"},
			profile:    ProfileFields{"sweetness": "sour"},
			wantValue:  "very very",
			wantSource: SourceEnv,
		},
		{
			name:       "cli over env and profile",
			explicit:   map[string]any{"sweetness": "bitter"},
			env:        map[string]string{"CMD_CLI_OPT_SWEETNESS": "very very"},
			profile:    ProfileFields{"sweetness": "sour"},
			wantValue:  "bitter",
			wantSource: SourceCLI,
		},
		{
			name:       "empty env is ignored",
			env:        map[string]string{"CMD_CLI_OPT_SWEETNESS": ""},
			wantValue:  "mild",
			wantSource: SourceDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := bananaInput()
			for k, v := range tt.explicit {
				in.Explicit[k] = v
			}
			if tt.profile != nil {
				in.Profiles = []ProfileFields{tt.profile}
			}

			args, err := NewResolver("CMD_CLI", env(tt.env)).Resolve(in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, args.Values["sweetness"])
			assert.Equal(t, tt.wantSource, args.SourceOf("sweetness"))
		})
	}
}

func TestResolve_ProfileMapsToPositionalsAndOptions(t *testing.T) {
	in := bananaInput()
	in.Profiles = []ProfileFields{{
		"color":       "yellow",
		"description": "A pretty good banana",
		"mold-type":   "none",
	}}

	args, err := NewResolver("CMD_CLI", env(nil)).Resolve(in)
	require.NoError(t, err)

	assert.Equal(t, "yellow", args.String("color"))
	assert.Equal(t, "A pretty good banana", args.String("description"))
	assert.Equal(t, "none", args.String("moldType"))
	assert.Equal(t, "mild", args.String("sweetness"))
	assert.False(t, args.Bool("ripe"))
	_, ok := args.Get("sides")
	assert.False(t, ok, "an option with no source should be absent")
}

func TestResolve_EnvForPositional(t *testing.T) {
	in := bananaInput()
	args, err := NewResolver("CMD_CLI", env(map[string]string{
		"CMD_CLI_OPT_COLOR":     "yellow and black",
		"CMD_CLI_OPT_MOLD_TYPE": "no mold at all",
	})).Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, "yellow and black", args.String("color"))
	assert.Equal(t, "no mold at all", args.String("moldType"))
}

func TestResolve_EnvCoercion(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		option  string
		want    any
		wantErr []string
	}{
		{name: "number", env: map[string]string{"CMD_CLI_OPT_SIDES": "443"}, option: "sides", want: float64(443)},
		{name: "bad number", env: map[string]string{"CMD_CLI_OPT_SIDES": "glarbles"}, wantErr: []string{"Syntax", "number", "glarbles"}},
		{name: "boolean true", env: map[string]string{"CMD_CLI_OPT_RIPE": "true"}, option: "ripe", want: true},
		{name: "boolean false", env: map[string]string{"CMD_CLI_OPT_RIPE": "false"}, option: "ripe", want: false},
		{name: "bad boolean", env: map[string]string{"CMD_CLI_OPT_RIPE": "gleebles"}, wantErr: []string{"Syntax", "boolean", "gleebles"}},
		{
			name:   "array",
			env:    map[string]string{"CMD_CLI_OPT_NAMES": "'bananor' 'banane' 'bana'"},
			option: "names",
			want:   []string{"bananor", "banane", "bana"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := NewResolver("CMD_CLI", env(tt.env)).Resolve(bananaInput())
			if tt.wantErr != nil {
				require.Error(t, err)
				var se *SyntaxError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, KindInvalidType, se.Kind)
				assert.Equal(t, SourceEnv, se.Source)
				for _, w := range tt.wantErr {
					assert.Contains(t, err.Error(), w)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, args.Values[tt.option])
			assert.Equal(t, SourceEnv, args.SourceOf(tt.option))
		})
	}
}

func TestResolve_ArraysReplaceWholesale(t *testing.T) {
	in := bananaInput()
	in.Options[5].DefaultValue = []any{"a", "b", "c"}
	in.Profiles = []ProfileFields{{"names": []any{"p1", "p2"}}}

	args, err := NewResolver("CMD_CLI", env(nil)).Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, args.Strings("names"))

	in.Explicit["names"] = []string{"only"}
	args, err = NewResolver("CMD_CLI", env(nil)).Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, args.Strings("names"))
}

func TestResolve_ProfileOrder(t *testing.T) {
	in := bananaInput()
	in.Profiles = []ProfileFields{
		{"description": "first"},
		{"description": "second", "color": "green"},
	}
	args, err := NewResolver("CMD_CLI", env(nil)).Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, "first", args.String("description"))
	assert.Equal(t, "green", args.String("color"))
}

func TestResolve_ProfileTypeMismatch(t *testing.T) {
	in := bananaInput()
	in.Profiles = []ProfileFields{{"ripe": 12}}
	_, err := NewResolver("CMD_CLI", env(nil)).Resolve(in)

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SourceProfile, se.Source)
	assert.Contains(t, err.Error(), "active profile")
}

func TestResolve_Required(t *testing.T) {
	in := &Input{Options: []*cli.OptionDefinition{
		{Name: "host", Type: cli.OptionTypeString, Required: true},
	}}
	_, err := NewResolver("APP", env(nil)).Resolve(in)

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindMissingRequired, se.Kind)
	assert.Contains(t, err.Error(), "Missing Required Option:\n--host")
}

func TestResolve_AllowableValues(t *testing.T) {
	in := &Input{
		Options: []*cli.OptionDefinition{
			{Name: "format", Type: cli.OptionTypeString, AllowableValues: []string{"json", "yaml"}},
		},
		Explicit: map[string]any{"format": "YAML"},
	}
	args, err := NewResolver("APP", env(nil)).Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, "YAML", args.String("format"))

	in.Explicit["format"] = "xml"
	_, err = NewResolver("APP", env(nil)).Resolve(in)
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindNotAllowed, se.Kind)
	assert.Contains(t, err.Error(), "[json, yaml]")
}

func TestResolve_CustomEnvNamer(t *testing.T) {
	namer := EnvNamerFunc(func(prefix, option string) string {
		return strings.ToLower(prefix) + "." + option
	})
	args, err := NewResolver("APP", WithEnvNamer(namer), env(map[string]string{"app.color": "red"})).Resolve(bananaInput())
	require.NoError(t, err)
	assert.Equal(t, "red", args.String("color"))
}

func TestResolve_NilInput(t *testing.T) {
	args, err := NewResolver("APP").Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, args.Names())
}

func TestInputFor(t *testing.T) {
	cmd := &cli.CommandDefinition{
		Positionals: []*cli.OptionDefinition{{Name: "p", Type: cli.OptionTypeString}},
		Options:     []*cli.OptionDefinition{{Name: "o", Type: cli.OptionTypeString}},
	}
	in := InputFor(cmd)
	assert.Len(t, in.Positionals, 1)
	assert.Len(t, in.Options, 1)
	assert.NotNil(t, in.Explicit)
}

func TestSource_String(t *testing.T) {
	tests := map[Source]string{
		SourceNone:    "none",
		SourceDefault: "default",
		SourceProfile: "profile",
		SourceEnv:     "env",
		SourceCLI:     "cli",
		Source(42):    "unknown(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Source(%d).String() = %q, want %q", s, got, want)
		}
	}
}
