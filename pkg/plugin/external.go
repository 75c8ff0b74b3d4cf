package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ValidationReport is the result of validating one plugin.
type ValidationReport struct {
	Plugin string  `json:"plugin" yaml:"plugin"`
	Valid  bool    `json:"valid" yaml:"valid"`
	Issues []Issue `json:"issues" yaml:"issues"`
}

// ValidateResponse is the JSON document printed by
// "plugins validate --output json".
type ValidateResponse struct {
	Success bool                `json:"success"`
	Stdout  string              `json:"stdout"`
	Stderr  string              `json:"stderr"`
	Data    []*ValidationReport `json:"data"`
}

// ExternalValidator validates a plugin outside the current startup pass.
type ExternalValidator interface {
	Run(ctx context.Context, pluginName string) (*ValidationReport, error)
}

// InProcessValidator validates through a Facility in this process.
type InProcessValidator struct {
	facility *Facility
}

// NewInProcessValidator creates a validator backed by f.
func NewInProcessValidator(f *Facility) *InProcessValidator {
	return &InProcessValidator{facility: f}
}

// Run validates pluginName.
func (v *InProcessValidator) Run(ctx context.Context, pluginName string) (*ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	valid := v.facility.ValidatePlugin(pluginName)
	return &ValidationReport{
		Plugin: pluginName,
		Valid:  valid,
		Issues: v.facility.Issues().IssuesFor(pluginName),
	}, nil
}

// ProcessValidator validates by running the host binary as a child process,
// so the plugin is checked against a freshly started host.
type ProcessValidator struct {
	executable string
	command    func(ctx context.Context, name string, args ...string) *exec.Cmd
	env        []string
}

// NewProcessValidator runs executable for each validation. An empty
// executable means the current program.
func NewProcessValidator(executable string) *ProcessValidator {
	return &ProcessValidator{
		executable: executable,
		command:    exec.CommandContext,
	}
}

// WithEnv adds environment entries for the child process.
func (v *ProcessValidator) WithEnv(env ...string) *ProcessValidator {
	v.env = append(v.env, env...)
	return v
}

// Run executes "<exe> plugins validate <name> --output json" and decodes the
// report it prints.
func (v *ProcessValidator) Run(ctx context.Context, pluginName string) (*ValidationReport, error) {
	exe := v.executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate the host executable: %w", err)
		}
		exe = self
	}

	cmd := v.command(ctx, exe, "plugins", "validate", pluginName, "--output", "json")
	cmd.Env = append(os.Environ(), v.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, NewPluginError(pluginName, "failed to run validation process", runErr)
		}
	}

	var resp ValidateResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, NewPluginError(pluginName, "unable to parse validation output", fmt.Errorf("%s", msg))
	}

	for _, report := range resp.Data {
		if report != nil && report.Plugin == pluginName {
			return report, nil
		}
	}

	return nil, NewPluginError(pluginName, "validation output did not include the plugin",
		fmt.Errorf("stdout: %s stderr: %s", strings.TrimSpace(resp.Stdout), strings.TrimSpace(resp.Stderr)))
}
