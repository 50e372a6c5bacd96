package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tacogips/remotetheme/internal/config"
	"github.com/tacogips/remotetheme/internal/theme"
)

// Acquirer materializes remote themes.
type Acquirer interface {
	Acquire(ctx context.Context, t *theme.Remote, proxy config.Proxy) error
}

// Hook runs after a theme has been resolved into a site.
type Hook func(ctx context.Context, s *Site, h theme.Handle) error

// Resolver decides which theme a site uses and wires it into the site.
type Resolver struct {
	acquirer Acquirer
	cacheDir string
	hooks    []Hook
	logger   *slog.Logger
}

// NewResolver creates a resolver. Remote themes are materialized by acquirer
// under cacheDir (os.TempDir() when empty). WireThemePaths is always the first
// hook.
func NewResolver(acquirer Acquirer, cacheDir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		acquirer: acquirer,
		cacheDir: cacheDir,
		hooks:    []Hook{WireThemePaths},
		logger:   logger,
	}
}

// AddHook appends a post-resolution hook.
func (r *Resolver) AddHook(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Resolve returns the theme configured for s, resolving it on first use.
//
// It returns nil and no error when no theme is configured and when the
// configured theme is malformed or does not exist; the latter is logged.
// Download and extraction failures are returned.
func (r *Resolver) Resolve(ctx context.Context, s *Site) (theme.Handle, error) {
	switch h := s.Theme.(type) {
	case *theme.Remote, *theme.Local:
		return h, nil
	}

	cfg := s.Config
	var handle theme.Handle

	switch cfg.Mode() {
	case config.ThemeNone:
		return nil, nil

	case config.ThemeRemote:
		if cfg.LocalTheme != "" {
			r.logger.Warn("both remote_theme and local_theme are set, using remote_theme",
				"local_theme", cfg.LocalTheme)
		}

		ref, err := theme.ParseReference(cfg.RemoteTheme.Value(), "")
		if err != nil {
			r.logger.Error("invalid remote theme", "error", err)
			return nil, nil
		}

		rt, err := theme.ReserveRemote(ref, r.cacheDir)
		if err != nil {
			return nil, err
		}
		r.logger.Info("using remote theme", "theme", ref.String())
		if err := r.acquirer.Acquire(ctx, rt, cfg.Proxy); err != nil {
			return nil, err
		}
		handle = rt

	case config.ThemeLocal:
		lt, err := theme.OpenLocal(cfg.LocalTheme, s.Source)
		if err != nil {
			r.logger.Error("invalid local theme", "error", err)
			return nil, nil
		}
		r.logger.Info("using local theme", "root", lt.Root())
		handle = lt
	}

	cfg.Theme = handle.Name()
	s.Theme = handle

	for _, hook := range r.hooks {
		if err := hook(ctx, s, handle); err != nil {
			return handle, fmt.Errorf("theme hook failed: %w", err)
		}
	}
	return handle, nil
}

// Theme directories added to the site load paths when present.
const (
	IncludesDir = "_includes"
	LayoutsDir  = "_layouts"
	SassDir     = "_sass"
)

// WireThemePaths adds the theme's include, layout and sass directories to the
// site load paths.
func WireThemePaths(_ context.Context, s *Site, h theme.Handle) error {
	root := h.Root()
	if root == "" {
		return fmt.Errorf("theme %s has no root", h.Name())
	}

	for _, p := range []struct {
		dir   string
		paths *[]string
	}{
		{IncludesDir, &s.IncludesLoadPaths},
		{LayoutsDir, &s.LayoutsLoadPaths},
		{SassDir, &s.SassLoadPaths},
	} {
		dir := filepath.Join(root, p.dir)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		*p.paths = appendUnique(*p.paths, dir)
	}
	return nil
}

func appendUnique(paths []string, p string) []string {
	for _, existing := range paths {
		if existing == p {
			return paths
		}
	}
	return append(paths, p)
}
