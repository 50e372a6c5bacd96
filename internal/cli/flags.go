package cli

import (
	"fmt"
	"path/filepath"

	"github.com/tacogips/remotetheme/internal/acquire"
	"github.com/tacogips/remotetheme/internal/archive"
	"github.com/tacogips/remotetheme/internal/config"
	"github.com/tacogips/remotetheme/internal/data"
	"github.com/tacogips/remotetheme/internal/fetch"
	"github.com/tacogips/remotetheme/internal/include"
	"github.com/tacogips/remotetheme/internal/site"
)

// Common flag names and descriptions
const (
	// Flag names
	FlagSource   = "source"
	FlagConfig   = "config"
	FlagCacheDir = "cache-dir"
	FlagFormat   = "format"
	FlagNoColor  = "no-color"
	FlagQuiet    = "quiet"
	FlagDebug    = "debug"

	// Flag descriptions
	DescSource   = "Site source directory"
	DescConfig   = "Path to site config file (default: <source>/_config.yml)"
	DescCacheDir = "Directory for downloaded themes (default: system temp dir)"
	DescFormat   = "Output format: yaml or json"
	DescNoColor  = "Disable colored output"
	DescQuiet    = "Suppress non-error output"
	DescDebug    = "Enable debug logging"
)

// Output formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ValidateFormat checks an output format name.
func ValidateFormat(format string) error {
	switch format {
	case FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be %s or %s", format, FormatYAML, FormatJSON)
	}
}

// resolveConfigPath returns the configuration file to load for source.
func resolveConfigPath(source, configPath string) string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath(source)
}

// loadSite loads the site configuration selected by the global flags.
// --source overrides the source derived from the configuration file location.
func loadSite(sourceChanged bool) (*site.Site, error) {
	path := resolveConfigPath(globalSource, globalConfig)

	cfg, err := config.NewLoader().LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if sourceChanged {
		cfg.Source = filepath.Clean(globalSource)
	}
	return site.New(cfg)
}

// newPipeline wires the theme pipeline. Cleanup goes to the process registry.
func newPipeline() *site.Pipeline {
	acquirer := acquire.New(fetch.New(nil), archive.New(nil), registry, nil)
	resolver := site.NewResolver(acquirer, globalCacheDir, nil)
	return site.NewPipeline(resolver, include.New(registry, nil), data.DefaultParser{}, nil)
}
