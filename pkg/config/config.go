// Package config contains the node configuration: the ledger parameters
// (supply cap, batch size, authorization grants) and the application
// configuration (storage, RPC, logging, monitoring).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the version of the node, set at build time.
var Version string

// Config is the top level struct representing the node configuration.
type Config struct {
	LedgerConfiguration      Ledger                   `yaml:"LedgerConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// LoadFile loads the config from the given path and validates it.
func LoadFile(configPath string) (Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Config{}
	err = yaml.Unmarshal(configData, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.LedgerConfiguration.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}
