package webhelp

import (
	"errors"
	"strings"
	"testing"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/CliForge/pluginhost/pkg/plugin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(fs afero.Fs, dir string, root *cli.CommandDefinition) error {
	g.calls++
	return TreeDumpGenerator{}.Generate(fs, dir, root)
}

func newTestManager(t *testing.T) (*Manager, afero.Fs, *countingGenerator, *[]string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	reg := plugin.NewRegistry(fs, "/home/plugins/plugins.json")
	require.NoError(t, afero.WriteFile(fs, reg.Path(), []byte(`{"sample": {"package": "sample", "version": "1.0.0"}}`), 0644))

	gen := &countingGenerator{}
	var opened []string
	m := NewManager("/home", Options{
		Fs:          fs,
		HostName:    "host",
		HostVersion: "2.0.0",
		Registry:    reg,
		Generator:   gen,
		Opener: func(target string) error {
			opened = append(opened, target)
			return nil
		},
	})
	return m, fs, gen, &opened
}

func TestMetadata_Equal(t *testing.T) {
	a := Metadata{{Name: "host", Version: "1"}, {Name: "p", Version: "2"}}
	tests := []struct {
		name  string
		other Metadata
		want  bool
	}{
		{name: "same order", other: Metadata{{Name: "host", Version: "1"}, {Name: "p", Version: "2"}}, want: true},
		{name: "different order", other: Metadata{{Name: "p", Version: "2"}, {Name: "host", Version: "1"}}, want: true},
		{name: "version changed", other: Metadata{{Name: "host", Version: "1"}, {Name: "p", Version: "3"}}, want: false},
		{name: "plugin removed", other: Metadata{{Name: "host", Version: "1"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_OpenHelpRegeneratesOnlyOnChange(t *testing.T) {
	m, fs, gen, opened := newTestManager(t)
	root := cli.NewRoot("host", "A host")

	require.NoError(t, m.OpenRootHelp(root))
	assert.Equal(t, 1, gen.calls)
	require.Len(t, *opened, 1)
	assert.True(t, strings.HasSuffix((*opened)[0], "/home/web-help/index.html"))

	md, err := readMetadata(fs, m.Dir())
	require.NoError(t, err)
	assert.Equal(t, Metadata{{Name: "host", Version: "2.0.0"}, {Name: "sample", Version: "1.0.0"}}, md)

	require.NoError(t, m.OpenRootHelp(root))
	assert.Equal(t, 1, gen.calls, "unchanged metadata must not regenerate")

	require.NoError(t, afero.WriteFile(fs, "/home/plugins/plugins.json", []byte(`{"sample": {"package": "sample", "version": "1.1.0"}}`), 0644))
	require.NoError(t, m.OpenRootHelp(root))
	assert.Equal(t, 2, gen.calls)
}

func TestManager_OpenHelpInContext(t *testing.T) {
	m, fs, _, _ := newTestManager(t)
	root := cli.NewRoot("host", "A host")

	require.NoError(t, m.OpenHelp(root, "host_plugins_list"))
	data, err := afero.ReadFile(fs, "/home/web-help/tree-data.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), `const cmdToLoad = "host_plugins_list";`)

	require.NoError(t, m.OpenRootHelp(root))
	data, err = afero.ReadFile(fs, "/home/web-help/tree-data.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "const cmdToLoad = null;")
}

func TestManager_OpenerFailureIsNotFatal(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	m.opener = func(string) error { return errors.New("no browser") }

	assert.NoError(t, m.OpenRootHelp(cli.NewRoot("host", "")))
}

func TestManager_GeneratorFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManager("/home", Options{Fs: fs, HostName: "host", Generator: failingGenerator{}, Opener: func(string) error { return nil }})

	err := m.OpenRootHelp(cli.NewRoot("host", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate web help")

	md, _ := readMetadata(fs, m.Dir())
	assert.Nil(t, md, "metadata must not be cached after a failed generation")
}

type failingGenerator struct{}

func (failingGenerator) Generate(afero.Fs, string, *cli.CommandDefinition) error {
	return errors.New("boom")
}
