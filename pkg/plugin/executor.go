package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// HandlerRequest is written as JSON to a plugin handler's stdin.
type HandlerRequest struct {
	// Command is the full command path, e.g. ["mock-plugin", "foo"].
	Command []string `json:"command"`
	// Arguments are the resolved option and positional values.
	Arguments map[string]any `json:"arguments"`
	// Sources records where each argument came from.
	Sources map[string]string `json:"sources,omitempty"`
}

// HandlerResponse is the optional JSON a handler prints on stdout.
type HandlerResponse struct {
	Stdout   string         `json:"stdout"`
	Stderr   string         `json:"stderr"`
	ExitCode int            `json:"exitCode"`
	Data     map[string]any `json:"data,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// HandlerResult is the outcome of running a handler.
type HandlerResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Data     map[string]any
	Duration time.Duration
}

// Success reports whether the handler exited cleanly.
func (r *HandlerResult) Success() bool {
	return r.ExitCode == 0
}

// Executor runs plugin command handlers as external programs.
type Executor struct {
	defaultTimeout time.Duration
	env            []string
}

// NewExecutor creates an executor. A zero timeout means 5 minutes.
func NewExecutor(timeout time.Duration, env ...string) *Executor {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Executor{defaultTimeout: timeout, env: env}
}

// Run executes the handler at path with req on stdin. A handler may print a
// HandlerResponse; any other output is passed through as plain text.
func (e *Executor) Run(ctx context.Context, path string, req *HandlerRequest) (*HandlerResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal handler request: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, path)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), e.env...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("handler %s timed out after %v", path, e.defaultTimeout)
		}
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to execute handler %s: %w", path, err)
		}
		exitCode = exitErr.ExitCode()
	}

	var resp HandlerResponse
	if stdout.Len() > 0 && json.Unmarshal(stdout.Bytes(), &resp) == nil && (resp.Stdout != "" || resp.Data != nil || resp.ExitCode != 0 || resp.Message != "") {
		out := resp.Stdout
		if out == "" && resp.Message != "" {
			out = resp.Message + "\n"
		}
		code := resp.ExitCode
		if code == 0 {
			code = exitCode
		}
		return &HandlerResult{
			Stdout:   out,
			Stderr:   resp.Stderr + stderr.String(),
			ExitCode: code,
			Data:     resp.Data,
			Duration: duration,
		}, nil
	}

	return &HandlerResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// Print copies the handler's output streams.
func (r *HandlerResult) Print(stdout, stderr io.Writer) {
	if r.Stdout != "" {
		_, _ = io.WriteString(stdout, r.Stdout)
	}
	if r.Stderr != "" {
		_, _ = io.WriteString(stderr, r.Stderr)
	}
}
