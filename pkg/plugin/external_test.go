package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessValidator(t *testing.T) {
	f, fs := newTestFacility(t)
	writeValidPlugin(t, fs, "good")
	desc := validDescriptor("bad")
	pluginConfig(desc)["definitions"] = []any{}
	writePlugin(t, fs, "bad", desc, "bin/healthcheck")
	f.SetResolvedTree(hostTree())

	v := NewInProcessValidator(f)

	report, err := v.Run(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, report.Valid)

	report, err = v.Run(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.True(t, hasIssue(report.Issues, SeverityError, "defines no children"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Run(ctx, "good")
	assert.Error(t, err)
}

// helperCommand re-runs the test binary as a fake host.
func helperCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	return exec.CommandContext(ctx, os.Args[0], cs...)
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	// args: -- <exe> plugins validate <name> --output json
	if len(args) < 5 {
		os.Exit(2)
	}
	name := args[4]

	switch os.Getenv("HELPER_MODE") {
	case "garbage":
		fmt.Fprint(os.Stderr, "host crashed")
		os.Exit(1)
	}

	resp := ValidateResponse{
		Success: name == "good",
		Data: []*ValidationReport{{
			Plugin: name,
			Valid:  name == "good",
			Issues: []Issue{{Severity: SeverityWarning, Text: "checked " + name}},
		}},
	}
	_ = json.NewEncoder(os.Stdout).Encode(resp)
}

func TestProcessValidator(t *testing.T) {
	v := NewProcessValidator("fake-host").WithEnv("GO_WANT_HELPER_PROCESS=1")
	v.command = helperCommand

	report, err := v.Run(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.True(t, hasIssue(report.Issues, SeverityWarning, "checked good"))

	report, err = v.Run(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, report.Valid)
}

func TestProcessValidator_UnparsableOutput(t *testing.T) {
	v := NewProcessValidator("fake-host").WithEnv("GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=garbage")
	v.command = helperCommand

	_, err := v.Run(context.Background(), "good")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host crashed")
}
