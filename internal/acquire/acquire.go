// Package acquire materializes remote themes on local disk.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tacogips/remotetheme/internal/config"
	"github.com/tacogips/remotetheme/internal/teardown"
	"github.com/tacogips/remotetheme/internal/theme"
)

// Fetcher downloads a theme archive into a temporary file.
type Fetcher interface {
	Fetch(ctx context.Context, ref theme.Reference, proxy config.Proxy) (string, error)
}

// Extractor unpacks an archive into a directory and removes the archive.
type Extractor interface {
	Extract(archivePath, dest string) error
}

// Acquirer drives download and extraction for remote themes.
//
// Acquire is not safe for concurrent use on the same theme; callers serialize
// acquisitions. Theme directories are reserved per run (theme.ReserveRemote),
// so separate processes never share one.
type Acquirer struct {
	fetcher   Fetcher
	extractor Extractor
	teardown  *teardown.Registry
	logger    *slog.Logger

	registered map[*theme.Remote]bool
}

// New creates an Acquirer. Removal hooks for materialized themes are added
// to td; a nil td disables removal.
func New(fetcher Fetcher, extractor Extractor, td *teardown.Registry, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		fetcher:    fetcher,
		extractor:  extractor,
		teardown:   td,
		logger:     logger,
		registered: make(map[*theme.Remote]bool),
	}
}

// Acquire makes t.Root() usable. If the theme directory already holds files
// it is reused without any network activity; within a run this happens when
// several instances point at the same directory. Otherwise the archive is fetched
// and extracted into a staging directory that is renamed onto the theme
// directory only once extraction succeeded.
//
// Download and extraction errors are returned unchanged.
func (a *Acquirer) Acquire(ctx context.Context, t *theme.Remote, proxy config.Proxy) error {
	a.scheduleRemoval(t)

	if t.State() == theme.Downloaded {
		return nil
	}

	dir := t.Dir()
	nonEmpty, err := isNonEmptyDir(dir)
	if err != nil {
		return theme.NewExtractionError(dir, "failed to inspect theme directory", err)
	}
	if nonEmpty {
		a.logger.Debug("theme already downloaded", "theme", t.NameWithOwner(), "dir", dir)
		t.MarkDownloaded()
		return nil
	}

	a.logger.Info("downloading remote theme", "theme", t.Reference().String())

	archivePath, err := a.fetcher.Fetch(ctx, t.Reference(), proxy)
	if err != nil {
		return err
	}

	if err := a.materialize(archivePath, dir); err != nil {
		return err
	}

	t.MarkDownloaded()
	a.logger.Debug("theme materialized", "theme", t.NameWithOwner(), "dir", dir)
	return nil
}

func (a *Acquirer) materialize(archivePath, dir string) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		_ = os.Remove(archivePath)
		return theme.NewExtractionError(archivePath, fmt.Sprintf("failed to create %s", parent), err)
	}

	staging, err := os.MkdirTemp(parent, filepath.Base(dir)+".staging-*")
	if err != nil {
		_ = os.Remove(archivePath)
		return theme.NewExtractionError(archivePath, "failed to create staging directory", err)
	}

	if err := a.extractor.Extract(archivePath, staging); err != nil {
		a.removeStaging(staging)
		return err
	}

	// An empty leftover directory would make the rename fail.
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		a.removeStaging(staging)
		return theme.NewExtractionError(dir, "theme directory is in the way", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		a.removeStaging(staging)
		return theme.NewExtractionError(dir, "failed to move extracted theme into place", err)
	}
	return nil
}

func (a *Acquirer) removeStaging(staging string) {
	if err := os.RemoveAll(staging); err != nil {
		a.logger.Debug("failed to remove staging directory", "path", staging, "error", err)
	}
}

// scheduleRemoval registers the theme directory for removal at exit, once
// per theme instance.
func (a *Acquirer) scheduleRemoval(t *theme.Remote) {
	if a.teardown == nil || a.registered[t] {
		return
	}
	a.registered[t] = true

	dir := t.Dir()
	a.teardown.Register("remove remote theme "+t.NameWithOwner(), func() error {
		a.logger.Debug("removing remote theme directory", "dir", dir)
		return os.RemoveAll(dir)
	})
}

// isNonEmptyDir reports whether dir exists, is a directory and has at least
// one entry.
func isNonEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", dir)
	}

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
