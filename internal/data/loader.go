package data

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tacogips/remotetheme/internal/theme"
)

// filePattern matches every file with an extension, at any depth.
const filePattern = "**/*.*"

// Key derives the data key of a file from its slash-separated path relative to
// the data directory: the extension is dropped, separators become
// underscores and the result is lower-cased.
func Key(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return strings.ToLower(strings.ReplaceAll(rel, "/", "_"))
}

// Loader reads data directories with a Parser.
type Loader struct {
	parser Parser
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil parser means DefaultParser.
func NewLoader(parser Parser, logger *slog.Logger) *Loader {
	if parser == nil {
		parser = DefaultParser{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{parser: parser, logger: logger}
}

// ReadDir parses every data file under dir and returns them keyed by Key.
// Files parsing to nil or false are left out. A missing dir yields an empty
// result.
func (l *Loader) ReadDir(dir string) (map[string]any, error) {
	result := map[string]any{}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), filePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list data files in %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, rel := range matches {
		if hidden(rel) {
			continue
		}
		file := filepath.Join(dir, filepath.FromSlash(rel))
		l.logger.Debug("reading data file", "path", file)

		v, err := l.parser.Parse(file)
		if err != nil {
			return nil, err
		}
		if isEmpty(v) {
			continue
		}
		result[Key(rel)] = v
	}
	return result, nil
}

// LoadThemeData reads the theme's data directory and merges it into siteData
// with Merge. A theme without a data directory is a no-op. A remote theme must
// be downloaded first.
func (l *Loader) LoadThemeData(handle theme.Handle, siteData map[string]any, dataDirName string) error {
	var root string
	switch h := handle.(type) {
	case nil:
		return nil
	case *theme.Remote:
		if h.State() != theme.Downloaded {
			return theme.NewValidationError(h.Dir(), "remote theme is not downloaded", nil)
		}
		root = h.Root()
	case *theme.Local:
		root = h.Root()
	}

	if dataDirName == "" {
		dataDirName = "_data"
	}
	dir := filepath.Join(root, dataDirName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		l.logger.Debug("no data directory found in theme", "dir", dir)
		return nil
	}

	l.logger.Debug("loading theme data", "dir", dir)
	themeData, err := l.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read theme data: %w", err)
	}
	Merge(siteData, themeData)
	return nil
}

func hidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
