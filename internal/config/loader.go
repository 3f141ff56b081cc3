package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configPathEnvVar = "DOCTRACK_CONFIG_PATH"

// GetConfigPath resolves the configuration file path. Priority:
//  1. configFileFlag, if it names an existing file.
//  2. DOCTRACK_CONFIG_PATH environment variable, if it names an existing file.
//  3. "config.yaml" in the current working directory.
//  4. "config.yaml" next to the running executable.
//
// Returns "" if none resolves to an existing file.
func GetConfigPath(configFileFlag string) string {
	if configFileFlag != "" {
		if fileExists(configFileFlag) {
			return configFileFlag
		}
	}

	if envPath := os.Getenv(configPathEnvVar); envPath != "" {
		if fileExists(envPath) {
			return envPath
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if path := filepath.Join(cwd, "config.yaml"); fileExists(path) {
			return path
		}
	}

	if exePath, err := os.Executable(); err == nil {
		if path := filepath.Join(filepath.Dir(exePath), "config.yaml"); fileExists(path) {
			return path
		}
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads, merges onto Default(), and validates the config file at path.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %q failed validation: %w", path, err)
	}
	return cfg, nil
}
