package plugin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not available on windows")
	}
	path := filepath.Join(t.TempDir(), "handler")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	e := NewExecutor(0)
	if e.defaultTimeout != 5*time.Minute {
		t.Errorf("defaultTimeout = %v, want 5m", e.defaultTimeout)
	}
}

func TestExecutor_Run(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantStdout string
		wantStderr string
		wantCode   int
		wantData   bool
	}{
		{
			name:       "plain output echoes the request",
			script:     "cat\n",
			wantStdout: `"command":["mock-plugin","foo"]`,
		},
		{
			name:       "structured response",
			script:     `printf '%s\n' '{"stdout":"hello\n","data":{"n":1}}'` + "\n",
			wantStdout: "hello\n",
			wantData:   true,
		},
		{
			name:       "message only",
			script:     `printf '%s\n' '{"message":"done"}'` + "\n",
			wantStdout: "done\n",
		},
		{
			name:       "non-zero exit",
			script:     "echo oops >&2\nexit 3\n",
			wantStderr: "oops",
			wantCode:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, tt.script)
			req := &HandlerRequest{
				Command:   []string{"mock-plugin", "foo"},
				Arguments: map[string]any{"color": "yellow"},
			}

			res, err := NewExecutor(10*time.Second).Run(context.Background(), path, req)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !strings.Contains(res.Stdout, tt.wantStdout) {
				t.Errorf("Stdout = %q, want it to contain %q", res.Stdout, tt.wantStdout)
			}
			if !strings.Contains(res.Stderr, tt.wantStderr) {
				t.Errorf("Stderr = %q, want it to contain %q", res.Stderr, tt.wantStderr)
			}
			if res.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.wantCode)
			}
			if res.Success() != (tt.wantCode == 0) {
				t.Errorf("Success() = %v", res.Success())
			}
			if tt.wantData && res.Data["n"] != float64(1) {
				t.Errorf("Data = %v", res.Data)
			}
		})
	}
}

func TestExecutor_RunMissingBinary(t *testing.T) {
	_, err := NewExecutor(time.Second).Run(context.Background(), "/nonexistent/handler", &HandlerRequest{})
	if err == nil {
		t.Error("Run() should fail for a missing handler")
	}
}

func TestExecutor_RunTimeout(t *testing.T) {
	path := writeScript(t, "exec sleep 5\n")
	_, err := NewExecutor(100*time.Millisecond).Run(context.Background(), path, &HandlerRequest{})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Run() error = %v, want timeout", err)
	}
}

func TestHandlerResult_Print(t *testing.T) {
	var out, errOut bytes.Buffer
	(&HandlerResult{Stdout: "a", Stderr: "b"}).Print(&out, &errOut)
	if out.String() != "a" || errOut.String() != "b" {
		t.Errorf("Print() wrote %q / %q", out.String(), errOut.String())
	}
}
