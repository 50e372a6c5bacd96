package config

import (
	"path/filepath"
)

// Default values.
const (
	DefaultDataDir = "_data"
)

// ConfigFileNames are the site configuration file names, in lookup order.
var ConfigFileNames = []string{"_config.yml", "_config.yaml"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source:  ".",
		DataDir: DefaultDataDir,
	}
}

// DefaultConfigPath returns the first existing configuration file under
// source, or the first candidate when none exists.
func DefaultConfigPath(source string) string {
	for _, name := range ConfigFileNames {
		p := filepath.Join(source, name)
		if fileExists(p) {
			return p
		}
	}
	return filepath.Join(source, ConfigFileNames[0])
}
