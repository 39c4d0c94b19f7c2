package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadOverrides reads and parses the overrides YAML file at path.
// Returns nil if the file does not exist.
func LoadOverrides(fs afero.Fs, path string) (*Overrides, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat overrides file %s: %w", path, err)
	}
	if !exists {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file %s: %w", path, err)
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file %s: %w", path, err)
	}

	return &overrides, nil
}

// ApplyOverrides applies overrides to the definitions in place.
// Glob patterns (e.g. "backup-*") are supported. Flags are additive.
func ApplyOverrides(defs []*Definition, overrides *Overrides) {
	if overrides == nil {
		return
	}
	for pattern, override := range overrides.Tasks {
		for _, def := range defs {
			if matchesPattern(pattern, def.Name) && override.Disabled {
				def.Disabled = true
			}
		}
	}
}

// matchesPattern checks whether name matches pattern using filepath.Match glob syntax.
func matchesPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
