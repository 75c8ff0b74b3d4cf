package config

import (
	"strings"
	"testing"

	"github.com/CliForge/pluginhost/pkg/cli"
)

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		host      *cli.HostConfig
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid host",
			host: &cli.HostConfig{BinName: "my-cli", Version: "1.0.0", EnvVariablePrefix: "MY_CLI"},
		},
		{
			name:      "nil host",
			wantError: true,
			errorMsg:  "host configuration is nil",
		},
		{
			name:      "missing bin name",
			host:      &cli.HostConfig{Version: "1.0.0"},
			wantError: true,
			errorMsg:  "binName",
		},
		{
			name:      "invalid bin name - uppercase",
			host:      &cli.HostConfig{BinName: "My-CLI"},
			wantError: true,
			errorMsg:  "lowercase",
		},
		{
			name:      "invalid version",
			host:      &cli.HostConfig{BinName: "my-cli", Version: "one"},
			wantError: true,
			errorMsg:  "semantic versioning",
		},
		{
			name:      "invalid env prefix",
			host:      &cli.HostConfig{BinName: "my-cli", EnvVariablePrefix: "my-cli"},
			wantError: true,
			errorMsg:  "envVariablePrefix",
		},
		{
			name: "invalid host definition",
			host: &cli.HostConfig{
				BinName: "my-cli",
				PluginConfig: cli.PluginConfig{Definitions: []*cli.CommandDefinition{
					{Name: "x", Type: "grp", Description: "d"},
				}},
			},
			wantError: true,
			errorMsg:  "definitions.0.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidator().Validate(tt.host)

			if tt.wantError && err == nil {
				t.Fatal("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantError && !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestValidator_ValidatePluginConfig(t *testing.T) {
	valid := &cli.PluginConfig{
		Name:                   "sample-plugin",
		RootCommandDescription: "Sample",
		PluginHealthCheck:      "bin/health",
		Definitions: []*cli.CommandDefinition{{
			Name:        "foo",
			Type:        cli.CommandTypeCommand,
			Description: "Foo",
			Handler:     "bin/foo",
			Options: []*cli.OptionDefinition{
				{Name: "color", Type: cli.OptionTypeString, DefaultValue: "blue"},
			},
		}},
		Profiles: []*cli.ProfileTypeConfiguration{{
			Type: "fruit",
			Schema: &cli.ProfileSchema{
				Type: "object",
				Properties: map[string]*cli.ProfileProperty{
					"color": {Type: "string"},
				},
			},
		}},
	}

	tests := []struct {
		name     string
		mutate   func(cfg *cli.PluginConfig)
		errorMsg string
	}{
		{name: "valid"},
		{
			name:     "bad plugin name",
			mutate:   func(cfg *cli.PluginConfig) { cfg.Name = "-bad name" },
			errorMsg: "name",
		},
		{
			name:     "duplicate aliases",
			mutate:   func(cfg *cli.PluginConfig) { cfg.PluginAliases = []string{"a", "a"} },
			errorMsg: "pluginAliases",
		},
		{
			name: "unknown option type",
			mutate: func(cfg *cli.PluginConfig) {
				cfg.Definitions[0].Options[0].Type = "int"
			},
			errorMsg: "definitions.0.options.0.type",
		},
		{
			name: "profile property without type",
			mutate: func(cfg *cli.PluginConfig) {
				cfg.Profiles[0].Schema.Properties["color"] = &cli.ProfileProperty{Type: "color"}
			},
			errorMsg: "profiles.0.schema.properties.color.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := copyPluginConfig(valid)
			cfg.Profiles = []*cli.ProfileTypeConfiguration{{
				Type: "fruit",
				Schema: &cli.ProfileSchema{
					Type:       "object",
					Properties: map[string]*cli.ProfileProperty{"color": {Type: "string"}},
				},
			}}
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := NewValidator().ValidatePluginConfig(cfg)
			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "" {
		t.Errorf("empty errors = %q", got)
	}
	errs := ValidationErrors{{Field: "a", Message: "bad"}, {Message: "worse"}}
	want := "validation failed:\n  - a: bad\n  - worse"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
