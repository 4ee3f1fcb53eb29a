// Package secrets stores deployment secrets in the OS keyring, with a
// restricted-permission file fallback for hosts without a keyring
// daemon. The deployment record only ever carries references into this
// store.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/catalystcommunity/lattice/internal/config"
)

// KeyringService is the service name used in the OS keyring
const KeyringService = "lattice"

// Store saves a named secret in the OS keyring
// Falls back to file storage if keyring is unavailable
func Store(name, value string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	if value == "" {
		return fmt.Errorf("secret value cannot be empty")
	}

	// Try to store in OS keyring first
	err := keyring.Set(KeyringService, name, value)
	if err == nil {
		return nil
	}

	// If keyring fails, fall back to file storage
	return storeInFile(name, value)
}

// Load retrieves a named secret from the OS keyring
// Falls back to file storage if keyring is unavailable
func Load(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	// Try to load from OS keyring first
	value, err := keyring.Get(KeyringService, name)
	if err == nil {
		return value, nil
	}

	// If keyring fails, fall back to file storage
	return loadFromFile(name)
}

// Clear removes a named secret from storage
func Clear(name string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}

	// Try to delete from keyring
	keyringErr := keyring.Delete(KeyringService, name)

	// Also try to delete from file (in case it was stored there)
	fileErr := deleteFile(name)

	// If both fail, return an error
	if keyringErr != nil && fileErr != nil {
		return fmt.Errorf("failed to clear secret %q from keyring (%v) and file (%v)", name, keyringErr, fileErr)
	}

	return nil
}

// KeyringResolver resolves secret references found in the deployment
// record against this store.
type KeyringResolver struct{}

// Resolve implements config.SecretResolver.
func (KeyringResolver) Resolve(name string) (string, error) {
	return Load(name)
}

var _ config.SecretResolver = KeyringResolver{}

// storeInFile stores the secret in a file with restrictive permissions
func storeInFile(name, value string) error {
	path, err := filePath(name)
	if err != nil {
		return fmt.Errorf("failed to get secret file path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}

	return nil
}

// loadFromFile loads the secret from file storage
func loadFromFile(name string) (string, error) {
	path, err := filePath(name)
	if err != nil {
		return "", fmt.Errorf("failed to get secret file path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret %q not found in keyring or file storage", name)
		}
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	return string(data), nil
}

// deleteFile removes the secret file if it exists
func deleteFile(name string) error {
	path, err := filePath(name)
	if err != nil {
		return fmt.Errorf("failed to get secret file path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, nothing to delete
		return nil
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete secret file: %w", err)
	}

	return nil
}

// filePath maps a secret name to its fallback file inside the config
// directory. Names are flattened so they never escape the directory.
func filePath(name string) (string, error) {
	dir, err := config.SecretsDir()
	if err != nil {
		return "", err
	}
	flat := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(name)
	return filepath.Join(dir, flat), nil
}
