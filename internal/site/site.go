// Package site holds the host-side state a theme is resolved into and the
// pipeline that resolves, materializes and merges a theme.
package site

import (
	"fmt"
	"path/filepath"

	"github.com/tacogips/remotetheme/internal/config"
	"github.com/tacogips/remotetheme/internal/theme"
)

// Site is the state of one site build.
//
// It is written by the pipeline before any reader looks at it and is not safe
// for concurrent mutation.
type Site struct {
	// Config is the loaded site configuration. Config.Theme is set on
	// resolution.
	Config *config.Config
	// Source is the absolute site source directory.
	Source string
	// Theme is the resolved theme, nil when none is configured.
	Theme theme.Handle
	// Data is the site data namespace, theme data merged in.
	Data map[string]any

	// Load paths wired from the theme root.
	IncludesLoadPaths []string
	LayoutsLoadPaths  []string
	SassLoadPaths     []string

	// StaticFiles lists files copied from the theme, relative to Source.
	StaticFiles []string
}

// New creates a site from cfg. A relative cfg.Source is resolved against the
// working directory.
func New(cfg *config.Config) (*Site, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	source := cfg.Source
	if source == "" {
		source = "."
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site source %s: %w", source, err)
	}
	cfg.Source = abs

	return &Site{
		Config: cfg,
		Source: abs,
		Data:   map[string]any{},
	}, nil
}

// DataDir returns the absolute site data directory.
func (s *Site) DataDir() string {
	name := s.Config.DataDir
	if name == "" {
		name = config.DefaultDataDir
	}
	return filepath.Join(s.Source, name)
}

// AddStaticFile records a file copied into the site, once.
func (s *Site) AddStaticFile(rel string) {
	for _, existing := range s.StaticFiles {
		if existing == rel {
			return
		}
	}
	s.StaticFiles = append(s.StaticFiles, rel)
}
