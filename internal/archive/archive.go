// Package archive unpacks theme archives into a normalized directory tree.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/docker/go-units"
	"github.com/klauspost/compress/zip"

	"github.com/tacogips/remotetheme/internal/theme"
)

// Default extraction limits.
const (
	DefaultMaxEntries            = 100_000
	DefaultMaxUncompressed int64 = 4 << 30
)

// Extractor unpacks zip archives.
type Extractor struct {
	// MaxEntries bounds the number of entries in an archive.
	MaxEntries int
	// MaxUncompressed bounds the total uncompressed size in bytes.
	MaxUncompressed int64
	// ScratchDir is where scratch directories are created. Empty means the
	// parent of the destination.
	ScratchDir string

	logger *slog.Logger
}

// New creates an Extractor with default limits.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		MaxEntries:      DefaultMaxEntries,
		MaxUncompressed: DefaultMaxUncompressed,
		logger:          logger,
	}
}

// Extract unpacks archivePath into dest with default limits.
func Extract(archivePath, dest string) error {
	return New(nil).Extract(archivePath, dest)
}

// Extract unpacks every entry of archivePath into a scratch directory, strips
// a single enclosing top-level directory if there is one, and copies the
// result into dest. The archive file and the scratch directory are removed on
// every exit path.
func (e *Extractor) Extract(archivePath, dest string) (err error) {
	defer func() {
		if rmErr := os.Remove(archivePath); rmErr != nil && !os.IsNotExist(rmErr) {
			e.logger.Debug("failed to remove archive", "path", archivePath, "error", rmErr)
		}
	}()

	scratchParent := e.ScratchDir
	if scratchParent == "" {
		scratchParent = filepath.Dir(dest)
		if err := os.MkdirAll(scratchParent, 0o755); err != nil {
			return theme.NewExtractionError(archivePath, "failed to create scratch parent directory", err)
		}
	}
	scratch, err := os.MkdirTemp(scratchParent, theme.DirPrefix+"scratch-*")
	if err != nil {
		return theme.NewExtractionError(archivePath, "failed to create scratch directory", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			e.logger.Debug("failed to remove scratch directory", "path", scratch, "error", rmErr)
		}
	}()

	e.logger.Debug("unzipping theme archive", "archive", archivePath, "dest", dest)

	if err := e.unzip(archivePath, scratch); err != nil {
		return err
	}

	source, err := effectiveRoot(scratch)
	if err != nil {
		return theme.NewExtractionError(archivePath, "failed to inspect extracted tree", err)
	}
	if source != scratch {
		e.logger.Debug("removing top-level directory", "dir", filepath.Base(source))
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return theme.NewExtractionError(archivePath, fmt.Sprintf("failed to create %s", dest), err)
	}
	if err := copyTree(source, dest); err != nil {
		return theme.NewExtractionError(archivePath, fmt.Sprintf("failed to copy extracted files to %s", dest), err)
	}
	return nil
}

// unzip extracts all entries under root.
func (e *Extractor) unzip(archivePath, root string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return theme.NewExtractionError(archivePath, "failed to open archive", err)
	}
	defer r.Close()

	maxEntries := e.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	maxTotal := e.MaxUncompressed
	if maxTotal <= 0 {
		maxTotal = DefaultMaxUncompressed
	}

	if len(r.File) > maxEntries {
		return theme.NewExtractionError(archivePath,
			fmt.Sprintf("archive has %d entries, limit is %d", len(r.File), maxEntries), nil)
	}

	var total int64
	for _, f := range r.File {
		target, err := entryPath(root, f.Name)
		if err != nil {
			return theme.NewExtractionError(archivePath, fmt.Sprintf("unsafe entry %q", f.Name), err)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return theme.NewExtractionError(archivePath, fmt.Sprintf("failed to create directory for %q", f.Name), err)
			}
		case mode&fs.ModeSymlink != 0:
			e.logger.Debug("skipping symlink entry", "entry", f.Name)
		case mode.IsRegular():
			total += int64(f.UncompressedSize64)
			if total > maxTotal {
				return theme.NewExtractionError(archivePath,
					fmt.Sprintf("archive exceeds uncompressed size limit of %s", units.BytesSize(float64(maxTotal))), nil)
			}
			if err := writeEntry(f, target, maxTotal); err != nil {
				return theme.NewExtractionError(archivePath, fmt.Sprintf("failed to extract %q", f.Name), err)
			}
		default:
			e.logger.Debug("skipping special entry", "entry", f.Name, "mode", mode.String())
		}
	}
	return nil
}

// entryPath validates an archive entry name and joins it under root.
// Absolute names and names with ".." segments are rejected.
func entryPath(root, name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if slashed == "" || strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.New("absolute or empty entry path")
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", errors.New("entry path escapes the extraction root")
		}
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return root, nil
	}
	// SecureJoin resolves symlinks already on disk inside root, so nothing
	// written earlier can redirect a later entry outside of it.
	return securejoin.SecureJoin(root, filepath.FromSlash(cleaned))
}

func writeEntry(f *zip.File, target string, limit int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	// Owner must be able to read and write so the tree can be copied and removed.
	perm |= 0o600

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, limit+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = fmt.Errorf("entry larger than %s", units.BytesSize(float64(limit)))
	}
	return err
}

// effectiveRoot returns the only child of dir when that child is a directory,
// and dir otherwise.
func effectiveRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// copyTree recursively copies the contents of src into dst, preserving
// structure and file permissions. Existing files in dst are overwritten.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(p, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
