package plugin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureOverrides(t *testing.T) {
	f, fs := newTestFacility(t)

	builtin := validDescriptor("builtin-cm")
	pluginConfig(builtin)["overrides"] = map[string]any{"CredentialManager": "memory"}
	writePlugin(t, fs, "builtin-cm", builtin, "bin/healthcheck", "bin/foo")

	second := validDescriptor("second-cm")
	pluginConfig(second)["overrides"] = map[string]any{"CredentialManager": "./bin/helper"}
	writePlugin(t, fs, "second-cm", second, "bin/healthcheck", "bin/foo", "bin/helper")

	registerPlugins(t, fs, "builtin-cm", "second-cm")
	require.NoError(t, f.LoadAllPluginCfgProps(context.Background()))

	ov := f.Overrides()
	assert.Equal(t, "memory", ov.CredentialManager)
	assert.Equal(t, "builtin-cm", ov.CredentialManagerPlugin)
	assert.Nil(t, ov.CredentialManagerModule)

	assert.True(t, hasIssue(f.Issues().IssuesFor("second-cm"), SeverityWarning,
		"which the plug-in 'builtin-cm' already overrides"))
}

func TestCaptureOverrides_ModulePath(t *testing.T) {
	f, fs := newTestFacility(t)

	desc := validDescriptor("helper-cm")
	pluginConfig(desc)["overrides"] = map[string]any{"CredentialManager": "bin/helper"}
	writePlugin(t, fs, "helper-cm", desc, "bin/healthcheck", "bin/foo", "bin/helper")
	registerPlugins(t, fs, "helper-cm")

	require.NoError(t, f.LoadAllPluginCfgProps(context.Background()))

	ov := f.Overrides()
	want := filepath.Join(f.PluginDir("helper-cm"), "bin/helper")
	assert.Equal(t, want, ov.CredentialManager)
	require.NotNil(t, ov.CredentialManagerModule)
	assert.True(t, ov.CredentialManagerModule.Executable)
}

func TestCaptureOverrides_MissingModule(t *testing.T) {
	f, fs := newTestFacility(t)

	desc := validDescriptor("broken-cm")
	pluginConfig(desc)["overrides"] = map[string]any{"CredentialManager": "./does/not/exist"}
	writePlugin(t, fs, "broken-cm", desc, "bin/healthcheck", "bin/foo")
	registerPlugins(t, fs, "broken-cm")

	require.NoError(t, f.LoadAllPluginCfgProps(context.Background()))

	assert.Empty(t, f.Overrides().CredentialManager)
	assert.True(t, hasIssue(f.Issues().IssuesFor("broken-cm"), SeverityError,
		"Unable to load the following module for plug-in 'broken-cm' :\n"+filepath.Join(f.PluginDir("broken-cm"), "does/not/exist")))
}

func TestCaptureOverrides_IssuesSurviveAddAllPlugins(t *testing.T) {
	f, fs := newTestFacility(t)

	first := validDescriptor("first")
	pluginConfig(first)["overrides"] = map[string]any{"CredentialManager": "./lib/missing"}
	writePlugin(t, fs, "first", first, "bin/healthcheck", "bin/foo")
	for _, name := range []string{"second", "third"} {
		desc := validDescriptor(name)
		pluginConfig(desc)["overrides"] = map[string]any{"CredentialManager": "memory"}
		writePlugin(t, fs, name, desc, "bin/healthcheck", "bin/foo")
	}
	registerPlugins(t, fs, "first", "second", "third")

	require.NoError(t, f.LoadAllPluginCfgProps(context.Background()))
	tree := hostTree()
	f.AddAllPlugins(tree)

	firstIssues := f.Issues().IssuesFor("first")
	assert.True(t, hasIssue(firstIssues, SeverityError, "Unable to load the following module for plug-in 'first'"),
		issueTexts(firstIssues))
	assert.Empty(t, f.Issues().IssuesFor("second"))
	thirdIssues := f.Issues().IssuesFor("third")
	assert.True(t, hasIssue(thirdIssues, SeverityWarning, "which the plug-in 'second' already overrides"),
		issueTexts(thirdIssues))

	states := f.PluginStates()
	assert.Equal(t, StateRejected, states["first"])
	assert.Equal(t, StateAccepted, states["second"])
	assert.Equal(t, StateAccepted, states["third"])
	assert.Equal(t, []string{"second", "third"}, names(tree.Children))
	assert.Equal(t, "second", f.Overrides().CredentialManagerPlugin)

	// A later validation pass keeps the findings too.
	assert.True(t, f.ValidatePlugin("third"))
	assert.True(t, hasIssue(f.Issues().IssuesFor("third"), SeverityWarning, "already overrides"))
	assert.False(t, f.ValidatePlugin("first"))
	assert.True(t, f.Issues().HasError("first"))
}
