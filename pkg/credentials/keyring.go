package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringManager stores values in the OS keyring under one service.
type KeyringManager struct {
	service string
}

// NewKeyringManager creates a keyring-backed manager.
func NewKeyringManager(service string) *KeyringManager {
	return &KeyringManager{service: service}
}

// Save stores value in the keyring.
func (k *KeyringManager) Save(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}
	return nil
}

// Load retrieves a value from the keyring.
func (k *KeyringManager) Load(key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to retrieve credential from keyring: %w", err)
	}
	return v, nil
}

// Delete removes a value from the keyring.
func (k *KeyringManager) Delete(key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}

// Name implements Manager.
func (k *KeyringManager) Name() string {
	return "the " + k.service + " keyring"
}
