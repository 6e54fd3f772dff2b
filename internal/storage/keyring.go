package storage

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "nlsh"
	// KeyringAPIKeyItem is the item holding the AI provider key
	KeyringAPIKeyItem = "ai-api-key"
)

// Keyring stores the API key in the OS credential store.
type Keyring struct {
	service string
}

// NewKeyring returns the keyring for nlsh.
func NewKeyring() *Keyring {
	return &Keyring{service: KeyringService}
}

// SaveAPIKey stores the API key.
func (k *Keyring) SaveAPIKey(apiKey string) error {
	if apiKey == "" {
		return errors.New("api key cannot be empty")
	}
	if err := keyring.Set(k.service, KeyringAPIKeyItem, apiKey); err != nil {
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	return nil
}

// GetAPIKey returns the stored key, or "" when none is stored.
func (k *Keyring) GetAPIKey() (string, error) {
	key, err := keyring.Get(k.service, KeyringAPIKeyItem)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return key, nil
}

// DeleteAPIKey removes the stored key. Removing a missing key succeeds.
func (k *Keyring) DeleteAPIKey() error {
	err := keyring.Delete(k.service, KeyringAPIKeyItem)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	return nil
}
