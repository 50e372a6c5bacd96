package site

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tacogips/remotetheme/internal/data"
	"github.com/tacogips/remotetheme/internal/include"
	"github.com/tacogips/remotetheme/internal/theme"
)

// Pipeline runs the theme stages of a site build: resolve the theme, copy
// included theme files, read site data and merge theme data into it.
type Pipeline struct {
	resolver *Resolver
	includer *include.Includer
	loader   *data.Loader
	logger   *slog.Logger
}

// NewPipeline creates a pipeline. A nil includer skips file inclusion; a nil
// parser means data.DefaultParser.
func NewPipeline(resolver *Resolver, includer *include.Includer, parser data.Parser, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver: resolver,
		includer: includer,
		loader:   data.NewLoader(parser, logger),
		logger:   logger,
	}
}

// Run processes s. It may be called again on the same site to regenerate:
// the resolved theme is reused and site data is read afresh.
func (p *Pipeline) Run(ctx context.Context, s *Site) error {
	handle, err := p.resolver.Resolve(ctx, s)
	if err != nil {
		return err
	}
	if lt, ok := handle.(*theme.Local); ok && !lt.Valid() {
		return theme.NewValidationError(lt.Root(), "local theme directory no longer exists", nil)
	}

	if handle != nil && p.includer != nil {
		copied, err := p.includer.Include(handle.Root(), s.Source, s.Config.Include)
		if err != nil {
			return err
		}
		for _, rel := range copied {
			s.AddStaticFile(rel)
		}
	}

	siteData, err := p.loader.ReadDir(s.DataDir())
	if err != nil {
		return fmt.Errorf("failed to read site data: %w", err)
	}
	s.Data = siteData

	if handle == nil {
		p.logger.Debug("no theme configured")
		return nil
	}

	return p.loader.LoadThemeData(handle, s.Data, s.Config.DataDir)
}
