// save.go: atomic YAML persistence of settings
package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirPerm  = 0o755
	configFilePerm = 0o644
)

// SaveYAMLConfig writes settings to path. The file is written to a temporary
// file in the same directory and renamed over the target.
func SaveYAMLConfig(path string, settings *Settings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	return writeFileAtomic(path, data)
}

// WriteDefaultConfig writes the commented default configuration to path
func WriteDefaultConfig(path string) error {
	data, err := DefaultConfigYAML()
	if err != nil {
		return fmt.Errorf("error reading default config: %w", err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error syncing temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Chmod(tempName, configFilePerm); err != nil {
		return fmt.Errorf("error setting config file permissions: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
