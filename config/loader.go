package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration from a yaml file. Validation happens at
// guard construction, after the caller has applied any overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file %v: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes yaml configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("config decode failed: %v", err)}
	}
	return &cfg, nil
}
