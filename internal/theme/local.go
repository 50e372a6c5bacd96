package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OpenLocal wraps an existing directory as a theme. Relative paths are
// resolved against anchorDir, usually the site source directory.
func OpenLocal(path, anchorDir string) (*Local, error) {
	if strings.TrimSpace(path) == "" {
		return nil, NewValidationError(path, "local theme path cannot be empty", nil)
	}

	root, err := resolveLocalPath(path, anchorDir)
	if err != nil {
		return nil, NewValidationError(path, "failed to resolve local theme path", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewValidationError(root, "local theme directory does not exist", nil)
		}
		return nil, NewValidationError(root, "failed to stat local theme directory", err)
	}
	if !info.IsDir() {
		return nil, NewValidationError(root, "local theme path is not a directory", nil)
	}

	return &Local{
		root: root,
		name: filepath.Base(root),
	}, nil
}

// resolveLocalPath expands ~ and anchors relative paths at anchorDir.
func resolveLocalPath(path, anchorDir string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	if anchorDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		anchorDir = cwd
	}

	abs, err := filepath.Abs(filepath.Join(anchorDir, path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	return abs, nil
}
