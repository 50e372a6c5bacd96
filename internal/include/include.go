// Package include copies selected theme files into a site source tree and
// removes them again when the process exits.
package include

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/natefinch/atomic"

	"github.com/tacogips/remotetheme/internal/teardown"
)

// Includer copies theme files into a site when the site lacks them.
//
// Copied files are tracked across calls so that one teardown hook can remove
// all of them.
type Includer struct {
	teardown *teardown.Registry
	logger   *slog.Logger

	copied    []copiedFile
	scheduled bool
}

type copiedFile struct {
	path   string
	source string
}

// New creates an Includer. Cleanup of copied files is scheduled on td; a nil
// td leaves copied files in place.
func New(td *teardown.Registry, logger *slog.Logger) *Includer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Includer{teardown: td, logger: logger}
}

// Include copies every file named by entries from themeRoot into source,
// unless source already has a file at the same relative path. An entry is a
// slash-separated path relative to the theme root or a doublestar pattern.
// Entries that escape either root are skipped with a warning.
//
// It returns the relative paths of the copied files.
func (in *Includer) Include(themeRoot, source string, entries []string) ([]string, error) {
	if len(entries) == 0 || themeRoot == "" {
		return nil, nil
	}

	source, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site source: %w", err)
	}

	in.logger.Debug("including theme files", "theme_root", themeRoot, "entries", len(entries))

	var copied []string
	for _, entry := range entries {
		rels, err := in.expand(themeRoot, entry)
		if err != nil {
			return copied, err
		}
		for _, rel := range rels {
			ok, err := in.includeOne(themeRoot, source, rel)
			if err != nil {
				return copied, err
			}
			if ok {
				copied = append(copied, rel)
			}
		}
	}

	in.scheduleCleanup()
	return copied, nil
}

// expand turns an include entry into theme-relative file paths.
func (in *Includer) expand(themeRoot, entry string) ([]string, error) {
	entry = filepath.ToSlash(strings.TrimSpace(entry))
	if !isPattern(entry) {
		return []string{entry}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(themeRoot), entry, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", entry, err)
	}
	if len(matches) == 0 {
		in.logger.Warn("include pattern matched no theme files", "pattern", entry)
	}
	sort.Strings(matches)
	return matches, nil
}

func (in *Includer) includeOne(themeRoot, source, rel string) (bool, error) {
	native := filepath.FromSlash(rel)
	if !filepath.IsLocal(native) {
		in.logger.Warn("skipping include outside of the theme", "path", rel)
		return false, nil
	}

	local := filepath.Join(source, native)
	if _, err := os.Lstat(local); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check %s: %w", local, err)
	}

	themeFile, err := securejoin.SecureJoin(themeRoot, native)
	if err != nil {
		in.logger.Warn("skipping unsafe include", "path", rel, "error", err)
		return false, nil
	}
	info, err := os.Stat(themeFile)
	if err != nil || !info.Mode().IsRegular() {
		in.logger.Warn("file not found in theme", "path", rel)
		return false, nil
	}

	in.logger.Debug("including file from theme", "path", rel)
	if err := copyFile(themeFile, local); err != nil {
		return false, fmt.Errorf("failed to include %s: %w", rel, err)
	}
	in.copied = append(in.copied, copiedFile{path: local, source: source})
	return true, nil
}

func (in *Includer) scheduleCleanup() {
	if in.teardown == nil || in.scheduled || len(in.copied) == 0 {
		return
	}
	in.scheduled = true
	in.teardown.Register("remove included theme files", in.Cleanup)
}

// Cleanup removes every copied file and prunes directories left empty, never
// going above the site source.
func (in *Includer) Cleanup() error {
	var errs []error
	for _, f := range in.copied {
		in.logger.Debug("cleaning up copied file", "path", f.path)
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		if err := pruneEmptyDirs(filepath.Dir(f.path), f.source); err != nil {
			errs = append(errs, err)
		}
	}
	in.copied = nil
	return errors.Join(errs...)
}

// Copied returns the absolute paths of files copied so far.
func (in *Includer) Copied() []string {
	paths := make([]string, len(in.copied))
	for i, f := range in.copied {
		paths[i] = f.path
	}
	return paths
}

// pruneEmptyDirs removes dir and its ancestors while they are empty. It stops
// at boundary, which is never removed, and at the first non-empty directory.
func pruneEmptyDirs(dir, boundary string) error {
	boundary = filepath.Clean(boundary)
	for dir = filepath.Clean(dir); isBelow(dir, boundary); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return err
		}
	}
	return nil
}

// isBelow reports whether dir is strictly inside boundary.
func isBelow(dir, boundary string) bool {
	rel, err := filepath.Rel(boundary, dir)
	if err != nil || rel == "." {
		return false
	}
	return filepath.IsLocal(rel)
}

func isPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?[{")
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := atomic.WriteFile(dst, f); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm()|fs.FileMode(0o200))
}
