package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// SaveDefault writes the default configuration to path.
func SaveDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("error creating default config: %w", err)
	}

	withComments := "# Block text sync server configuration\n" +
		"# store.backend is one of memory, bolt, postgres or firestore.\n\n" +
		string(data)

	if err := os.WriteFile(path, []byte(withComments), 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
