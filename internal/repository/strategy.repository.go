package repository

import (
	"fmt"
	"os"

	"stratsim/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadStrategyConfig reads a strategy definition from a yaml document and
// validates the parts that do not require factor construction. Factor
// params are validated later, when the strategy handler builds its
// evaluators.
func LoadStrategyConfig(path string) (*domain.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy config %s: %w", path, err)
	}
	return ParseStrategyConfig(data)
}

func ParseStrategyConfig(data []byte) (*domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse strategy config: %w", err)
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("strategy config missing name")
	}
	if len(cfg.Universe) == 0 {
		return nil, fmt.Errorf("strategy %s has an empty symbol universe", cfg.Name)
	}
	for _, factorConfig := range cfg.Factors {
		if err := factorConfig.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Risk.Validate(); err != nil {
		return nil, fmt.Errorf("strategy %s has invalid risk config: %w", cfg.Name, err)
	}

	return &cfg, nil
}
