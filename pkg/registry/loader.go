package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither a path nor ASP_CONFIG is given
const DefaultPath = "asp.yaml"

// Loader handles loading registry files
type Loader struct {
	configPath string
}

// NewLoader creates a new registry loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	if configPath := os.Getenv("ASP_CONFIG"); configPath != "" {
		return configPath
	}
	if l.configPath == "" {
		return DefaultPath
	}
	return l.configPath
}

// LoadRegistry loads the registry, falling back to defaults when the file does not exist
func (l *Loader) LoadRegistry() (*Registry, error) {
	path := l.Path()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return GetDefaultRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reg, err := LoadRegistryFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// LoadRegistryFromBytes loads a registry from YAML, on top of the defaults
func LoadRegistryFromBytes(data []byte) (*Registry, error) {
	reg := GetDefaultRegistry()
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return reg, nil
}

// SaveRegistry writes the registry as YAML
func (l *Loader) SaveRegistry(reg *Registry) error {
	path := l.Path()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultRegistry returns a registry with default solver settings and no decoders
func GetDefaultRegistry() *Registry {
	return &Registry{
		Solver: SolverConfig{
			Binary:    "clingo",
			Models:    0,
			Timeout:   time.Minute,
			CacheSize: 256,
		},
	}
}
