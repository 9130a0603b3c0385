package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SyncSettings are per-deployment sync tweaks kept in a YAML file next to the
// service, so shops can adjust them without redeploying.
type SyncSettings struct {
	// ExcludedRootCategories replaces the configured exclusion list when
	// non-empty.
	ExcludedRootCategories []string `yaml:"excluded_root_categories"`

	// GoodIDAliases are extra identifier column names tried before heuristic
	// detection.
	GoodIDAliases []string `yaml:"good_id_aliases"`
}

// LoadSyncSettings reads a YAML settings file. A missing path returns empty
// settings, not an error; the file is optional.
func LoadSyncSettings(path string) (*SyncSettings, error) {
	if path == "" {
		return &SyncSettings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SyncSettings{}, nil
		}
		return nil, fmt.Errorf("read sync settings %s: %w", path, err)
	}

	settings := &SyncSettings{}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse sync settings %s: %w", path, err)
	}
	return settings, nil
}

// Apply merges the settings into a sync config.
func (s *SyncSettings) Apply(cfg *SyncConfig) {
	if len(s.ExcludedRootCategories) > 0 {
		cfg.ExcludedRootCategories = s.ExcludedRootCategories
	}
	if len(s.GoodIDAliases) > 0 {
		cfg.GoodIDAliases = append(cfg.GoodIDAliases, s.GoodIDAliases...)
	}
}
