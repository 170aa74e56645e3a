package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the file looked up inside the config directory.
const BootstrapFileName = "joypad_config.yaml"

// EnvTargetURL overrides transport.url when set.
const EnvTargetURL = "JOYPAD_TARGET_URL"

// LoadBootstrapConfig loads the bootstrap configuration from configDir/joypad_config.yaml,
// applies defaults and the environment override, and validates the result.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	return finish(&bootstrapCfg)
}

// LoadOrDefault behaves like LoadBootstrapConfig but falls back to defaults
// when the file does not exist. Any other read or parse error is returned.
func LoadOrDefault(configDir string) (*BootstrapConfig, bool, error) {
	cfg, err := LoadBootstrapConfig(configDir)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}
	cfg, err = finish(&BootstrapConfig{})
	return cfg, false, err
}

func finish(cfg *BootstrapConfig) (*BootstrapConfig, error) {
	applyDefaults(cfg)
	if target := os.Getenv(EnvTargetURL); target != "" {
		cfg.Transport.URL = target
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
