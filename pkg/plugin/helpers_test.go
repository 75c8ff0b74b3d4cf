package plugin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/spf13/afero"
)

const testHome = "/home/sample/.sample-cli"

type fakeProfiles struct {
	types []string
	added []*cli.ProfileTypeConfiguration
	err   error
}

func (p *fakeProfiles) ProfileTypes() []string { return p.types }

func (p *fakeProfiles) AddProfiles(profiles []*cli.ProfileTypeConfiguration) error {
	if p.err != nil {
		return p.err
	}
	p.added = append(p.added, profiles...)
	return nil
}

type fakeValidator struct {
	err   error
	panic bool
}

func (v *fakeValidator) ValidatePluginConfig(*cli.PluginConfig) error {
	if v.panic {
		panic(errors.New("validator exploded"))
	}
	return v.err
}

type failingCombiner struct{}

func (failingCombiner) CombineAllCmdDefs(string, []*cli.CommandDefinition, []string) (*cli.CommandDefinition, error) {
	return nil, errors.New("kaboom")
}

func testHost() HostInfo {
	return HostInfo{
		CliCmdName:           "sample-cli",
		CliPackageName:       "sample-cli",
		CliVersion:           "1.2.3",
		FrameworkPackageName: "github.com/CliForge/pluginhost",
		FrameworkVersion:     "0.4.0",
		ConfigKey:            "pluginhost",
	}
}

func newTestFacility(t *testing.T, mutate ...func(*Options)) (*Facility, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	opts := Options{
		Fs:       fs,
		Paths:    NewPaths(testHome),
		Host:     testHost(),
		Profiles: &fakeProfiles{types: []string{"base"}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts), fs
}

func hostTree(children ...*cli.CommandDefinition) *cli.CommandDefinition {
	root := cli.NewRoot("sample-cli", "sample host")
	root.Children = append(root.Children, children...)
	return root
}

func validDescriptor(name string) map[string]any {
	return map[string]any{
		"name":    name,
		"version": "1.0.0",
		"peerDependencies": map[string]any{
			"sample-cli":                     "^1.0.0",
			"github.com/CliForge/pluginhost": "^0.4.0",
		},
		"pluginhost": map[string]any{
			"name":                   name,
			"pluginAliases":          []any{name + "-alias"},
			"pluginSummary":          "summary of " + name,
			"rootCommandDescription": "root description of " + name,
			"pluginHealthCheck":      "bin/healthcheck",
			"definitions": []any{
				map[string]any{
					"name":        "foo",
					"type":        "command",
					"description": "the foo command",
					"handler":     "bin/foo",
				},
			},
		},
	}
}

// pluginConfig returns the framework block of a descriptor for editing.
func pluginConfig(desc map[string]any) map[string]any {
	return desc["pluginhost"].(map[string]any)
}

func writePlugin(t *testing.T, fs afero.Fs, name string, desc map[string]any, files ...string) {
	t.Helper()
	dir := filepath.Join(testHome, "plugins", "installed", name)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if desc != nil {
		data, err := json.Marshal(desc)
		if err != nil {
			t.Fatalf("marshal descriptor: %v", err)
		}
		if err := afero.WriteFile(fs, filepath.Join(dir, DescriptorFile), data, 0644); err != nil {
			t.Fatalf("write descriptor: %v", err)
		}
	}
	for _, f := range files {
		if err := afero.WriteFile(fs, filepath.Join(dir, f), []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
}

func writeValidPlugin(t *testing.T, fs afero.Fs, name string) {
	t.Helper()
	writePlugin(t, fs, name, validDescriptor(name), "bin/healthcheck", "bin/foo")
}

func registerPlugins(t *testing.T, fs afero.Fs, names ...string) {
	t.Helper()
	installed := make(InstalledPlugins, 0, len(names))
	for _, n := range names {
		installed = append(installed, InstalledPlugin{Name: n, Entry: RegistryEntry{Package: n, Version: "1.0.0"}})
	}
	if err := NewRegistry(fs, NewPaths(testHome).RegistryFile).Save(installed); err != nil {
		t.Fatalf("save registry: %v", err)
	}
}

func issueTexts(issues []Issue) string {
	texts := make([]string, len(issues))
	for i, is := range issues {
		texts[i] = is.Severity.String() + ": " + is.Text
	}
	return strings.Join(texts, "\n")
}

func hasIssue(issues []Issue, sev IssueSeverity, substr string) bool {
	for _, is := range issues {
		if is.Severity == sev && strings.Contains(is.Text, substr) {
			return true
		}
	}
	return false
}
