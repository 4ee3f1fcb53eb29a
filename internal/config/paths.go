package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the default directory name for lattice state
	DefaultConfigDir = ".lattice"
	// DefaultConfigName is the default deployment record file name
	DefaultConfigName = "deployment.conf"

	artifactsDirName = "artifacts"
	runLogName       = "deploy.log"
	stateFileName    = "run-state.yaml"
	lockFileName     = "lattice.lock"
	secretsDirName   = "secrets"
	helmDirName      = "helm"
)

// GetConfigDir returns the lattice configuration directory path
// Defaults to ~/.lattice/ unless overridden by environment
func GetConfigDir() (string, error) {
	// Check if there's an override via environment variable
	if dir := os.Getenv("LATTICE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return configDir, nil
}

// DefaultConfigPath returns the path of the default deployment record.
func DefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, DefaultConfigName), nil
}

// ResolveConfigPath resolves the --config argument. An empty name means
// the default record; an absolute path is used as-is; anything else is
// looked up inside the config directory.
func ResolveConfigPath(name string) (string, error) {
	if name == "" {
		return DefaultConfigPath()
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, name), nil
}

// ArtifactsDir returns the directory that holds rendered deployment
// artifacts, one subdirectory per component.
func ArtifactsDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, artifactsDirName), nil
}

// RunLogPath returns the path of the append-only deployment log.
func RunLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, runLogName), nil
}

// StatePath returns the path of the run-state checkpoint file.
func StatePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, stateFileName), nil
}

// LockPath returns the path of the advisory lock file that serializes
// deploy and clean runs against the same config directory.
func LockPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, lockFileName), nil
}

// SecretsDir returns the fallback directory for secrets that could not
// be stored in the OS keyring.
func SecretsDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, secretsDirName), nil
}

// HelmDir returns the directory that holds the Helm repository config
// and chart cache, isolated from any Helm CLI installation on the host.
func HelmDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, helmDirName), nil
}
