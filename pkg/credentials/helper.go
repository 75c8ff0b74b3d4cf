package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// helperNotFound is the message credential helpers print for a missing key.
const helperNotFound = "credentials not found in native keychain"

// helperCredentials is the payload exchanged with a credential helper.
type helperCredentials struct {
	ServerURL string `json:"ServerURL"`
	Username  string `json:"Username"`
	Secret    string `json:"Secret"`
}

// HelperManager delegates to an external credential helper executable that
// speaks the store/get/erase protocol used by docker credential helpers.
type HelperManager struct {
	path    string
	service string
	timeout time.Duration
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewHelperManager creates a manager backed by the helper at path. A zero
// timeout means 30 seconds.
func NewHelperManager(path, service string, timeout time.Duration) *HelperManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HelperManager{
		path:    path,
		service: service,
		timeout: timeout,
		command: exec.CommandContext,
	}
}

// Path returns the helper executable.
func (h *HelperManager) Path() string {
	return h.path
}

func (h *HelperManager) serverURL(key string) string {
	return h.service + "/" + key
}

func (h *HelperManager) run(action string, stdin []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	cmd := h.command(ctx, h.path, action)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stdout.String() + stderr.String())
		if strings.Contains(msg, helperNotFound) {
			return nil, ErrNotFound
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("credential helper %s timed out after %v", h.path, h.timeout)
		}
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("credential helper %s %s failed: %s", h.path, action, msg)
	}
	return stdout.Bytes(), nil
}

// Save implements Manager.
func (h *HelperManager) Save(key, value string) error {
	payload, err := json.Marshal(helperCredentials{
		ServerURL: h.serverURL(key),
		Username:  key,
		Secret:    value,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	_, err = h.run("store", payload)
	return err
}

// Load implements Manager.
func (h *HelperManager) Load(key string) (string, error) {
	out, err := h.run("get", []byte(h.serverURL(key)))
	if err != nil {
		if err == ErrNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", err
	}
	var creds helperCredentials
	if err := json.Unmarshal(out, &creds); err != nil {
		return "", fmt.Errorf("failed to parse credential helper output: %w", err)
	}
	return creds.Secret, nil
}

// Delete implements Manager.
func (h *HelperManager) Delete(key string) error {
	_, err := h.run("erase", []byte(h.serverURL(key)))
	if err == ErrNotFound {
		return nil
	}
	return err
}

// Name implements Manager.
func (h *HelperManager) Name() string {
	return "the credential helper " + h.path
}
