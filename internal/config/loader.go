package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader defines the interface for loading site configuration files.
type Loader interface {
	// Load loads configuration from the specified file path.
	Load(path string) (*Config, error)
	// LoadOrDefault loads configuration or returns defaults if the file doesn't exist.
	LoadOrDefault(path string) (*Config, error)
}

// FileLoader implements Loader for YAML files.
type FileLoader struct{}

// NewLoader creates a new FileLoader instance.
func NewLoader() Loader {
	return &FileLoader{}
}

// Load loads, expands, defaults and validates configuration from path.
func (l *FileLoader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewConfigErrorWithCause(ConfigNotFound, path, "configuration file not found", err)
		}
		return nil, NewConfigErrorWithCause(ConfigInvalid, path, "failed to read configuration file", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, NewConfigErrorWithCause(ConfigInvalid, path, "invalid YAML syntax", err)
	}

	if cfg.Source == "" || cfg.Source == "." {
		cfg.Source = filepath.Dir(path)
	} else if !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(filepath.Dir(path), cfg.Source)
	}

	if err := Validate(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or returns defaults if the file doesn't exist.
func (l *FileLoader) LoadOrDefault(path string) (*Config, error) {
	cfg, err := l.Load(path)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Type == ConfigNotFound {
			cfg = DefaultConfig()
			cfg.Source = filepath.Dir(path)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML configuration, expands environment references and fills
// in defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.expandEnv()
	mergeConfig(&cfg, DefaultConfig())
	return &cfg, nil
}

// expandEnv expands ${VAR} references in path-like and credential fields.
func (c *Config) expandEnv() {
	c.Source = os.ExpandEnv(c.Source)
	c.LocalTheme = os.ExpandEnv(c.LocalTheme)
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.Proxy.Address = os.ExpandEnv(c.Proxy.Address)
	c.Proxy.Username = os.ExpandEnv(c.Proxy.Username)
	c.Proxy.Password = os.ExpandEnv(c.Proxy.Password)
	if c.RemoteTheme != nil {
		c.RemoteTheme.Identifier = os.ExpandEnv(c.RemoteTheme.Identifier)
	}
}

// mergeConfig merges missing fields from defaults into cfg.
func mergeConfig(cfg, defaults *Config) {
	if cfg.Source == "" {
		cfg.Source = defaults.Source
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
}

// Marshal renders the configuration back to YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
