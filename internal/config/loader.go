package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadError is returned when a task file can't be read, decoded or validated
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// taskFilePatterns are the globs LoadTaskDir picks up
var taskFilePatterns = []string{"*.yml", "*.yaml"}

// LoadTaskFile reads, decodes and validates a single task file.
// Unknown fields are rejected.
func LoadTaskFile(fs afero.Fs, path string) (*Definition, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	def, err := decodeDefinition(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	def.Source = path

	if err := Validate(def); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return def, nil
}

// ParseDefinition decodes and validates a task definition held in memory
func ParseDefinition(data []byte) (*Definition, error) {
	def, err := decodeDefinition(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("task file is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &def, nil
}

// LoadTaskDir loads every task file in dir, sorted by file name.
// It fails on the first invalid file and on duplicate task names.
func LoadTaskDir(fs afero.Fs, dir string) ([]*Definition, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("check tasks directory: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("tasks directory %s does not exist", dir)
	}

	paths, err := resolveTaskFiles(fs, dir)
	if err != nil {
		return nil, err
	}

	defs := make([]*Definition, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		def, err := LoadTaskFile(fs, path)
		if err != nil {
			return nil, err
		}
		if prev, exists := seen[def.Name]; exists {
			return nil, fmt.Errorf("duplicate task name '%s' in %s and %s", def.Name, prev, path)
		}
		seen[def.Name] = path
		defs = append(defs, def)
	}

	return defs, nil
}

// resolveTaskFiles expands the task file globs inside dir
func resolveTaskFiles(fs afero.Fs, dir string) ([]string, error) {
	var resolved []string
	for _, pattern := range taskFilePatterns {
		matches, err := afero.Glob(fs, filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		resolved = append(resolved, matches...)
	}
	sort.Strings(resolved)
	return resolved, nil
}
