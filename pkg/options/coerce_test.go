package options

import (
	"reflect"
	"testing"

	"github.com/CliForge/pluginhost/pkg/cli"
)

func TestCoerceString(t *testing.T) {
	tests := []struct {
		name    string
		typ     cli.OptionType
		raw     string
		want    any
		wantErr bool
	}{
		{name: "string passes through", typ: cli.OptionTypeString, raw: " spaced ", want: " spaced "},
		{name: "true", typ: cli.OptionTypeBoolean, raw: "true", want: true},
		{name: "false", typ: cli.OptionTypeBoolean, raw: "false", want: false},
		{name: "uppercase boolean", typ: cli.OptionTypeBoolean, raw: "TRUE", wantErr: true},
		{name: "numeric boolean", typ: cli.OptionTypeBoolean, raw: "1", wantErr: true},
		{name: "integer", typ: cli.OptionTypeNumber, raw: "443", want: float64(443)},
		{name: "negative float", typ: cli.OptionTypeNumber, raw: "-1.5", want: -1.5},
		{name: "exponent", typ: cli.OptionTypeNumber, raw: "1e3", want: float64(1000)},
		{name: "empty number", typ: cli.OptionTypeNumber, raw: "", wantErr: true},
		{name: "NaN", typ: cli.OptionTypeNumber, raw: "NaN", wantErr: true},
		{name: "Inf", typ: cli.OptionTypeNumber, raw: "+Inf", wantErr: true},
		{name: "word", typ: cli.OptionTypeNumber, raw: "glarbles", wantErr: true},
		{name: "array", typ: cli.OptionTypeArray, raw: `a "b c" d`, want: []string{"a", "b c", "d"}},
		{name: "unterminated array", typ: cli.OptionTypeArray, raw: `'a b`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := &cli.OptionDefinition{Name: "opt", Type: tt.typ}
			got, err := CoerceString(opt, tt.raw, SourceEnv)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CoerceString(%q) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CoerceString(%q) error = %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CoerceString(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name    string
		typ     cli.OptionType
		in      any
		want    any
		wantErr bool
	}{
		{name: "bool", typ: cli.OptionTypeBoolean, in: true, want: true},
		{name: "int to number", typ: cli.OptionTypeNumber, in: 8080, want: float64(8080)},
		{name: "string number", typ: cli.OptionTypeNumber, in: "12", want: float64(12)},
		{name: "number as string", typ: cli.OptionTypeString, in: 8080, want: "8080"},
		{name: "bool for number", typ: cli.OptionTypeNumber, in: true, wantErr: true},
		{name: "yaml list", typ: cli.OptionTypeArray, in: []any{"a", 1, true}, want: []string{"a", "1", "true"}},
		{name: "nested list", typ: cli.OptionTypeArray, in: []any{[]any{"a"}}, wantErr: true},
		{name: "map for string", typ: cli.OptionTypeString, in: map[string]any{"a": 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := &cli.OptionDefinition{Name: "opt", Type: tt.typ}
			got, err := CoerceValue(opt, tt.in, SourceProfile)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CoerceValue(%v) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CoerceValue(%v) error = %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CoerceValue(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitArray(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "'bananor' 'banane' 'bana'", want: []string{"bananor", "banane", "bana"}},
		{raw: "one two  three", want: []string{"one", "two", "three"}},
		{raw: `"a b" 'c d'`, want: []string{"a b", "c d"}},
		{raw: `it\'s`, want: []string{"it's"}},
		{raw: `'x\y'`, want: []string{`x\y`}},
		{raw: `''`, want: []string{""}},
		{raw: "   ", want: []string{}},
		{raw: `pre"mid dle"post`, want: []string{"premid dlepost"}},
	}

	for _, tt := range tests {
		got, err := SplitArray(tt.raw)
		if err != nil {
			t.Errorf("SplitArray(%q) error = %v", tt.raw, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArray(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestEnvNames(t *testing.T) {
	tests := []struct {
		option string
		want   string
	}{
		{"color", "CMD_CLI_OPT_COLOR"},
		{"moldType", "CMD_CLI_OPT_MOLD_TYPE"},
		{"mold-type", "CMD_CLI_OPT_MOLD_TYPE"},
		{"someURLValue", "CMD_CLI_OPT_SOME_URL_VALUE"},
		{"a.b--c", "CMD_CLI_OPT_A_B_C"},
		{"port2", "CMD_CLI_OPT_PORT2"},
	}
	for _, tt := range tests {
		if got := DefaultEnvNamer.EnvName("CMD_CLI", tt.option); got != tt.want {
			t.Errorf("EnvName(%q) = %q, want %q", tt.option, got, tt.want)
		}
	}
	if got := DefaultEnvNamer.EnvName("", "color"); got != "OPT_COLOR" {
		t.Errorf("EnvName without prefix = %q", got)
	}
}

func TestCaseVariants(t *testing.T) {
	if got := CamelCase("mold-type"); got != "moldType" {
		t.Errorf("CamelCase = %q", got)
	}
	if got := CamelCase("plain"); got != "plain" {
		t.Errorf("CamelCase = %q", got)
	}
	if got := KebabCase("moldType"); got != "mold-type" {
		t.Errorf("KebabCase = %q", got)
	}
}
