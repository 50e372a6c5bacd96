package theme

import (
	"fmt"
	"os"
)

// DirPrefix prefixes every directory this package creates for remote themes.
const DirPrefix = "remote-theme-"

// Handle is a resolved theme. It is either *Remote or *Local; consumers
// type-switch on the concrete type.
type Handle interface {
	// Name returns the theme name used in host configuration.
	Name() string
	// Root returns the theme root directory, or "" if it is not available yet.
	Root() string

	sealed()
}

// State is the materialization state of a remote theme.
type State int

const (
	// NotDownloaded means the theme directory has not been materialized.
	NotDownloaded State = iota
	// Downloaded means the theme directory is complete and may be read.
	Downloaded
)

// Remote is a theme downloaded from a repository archive.
//
// Its fields are written once by the acquisition pipeline before any reader
// looks at the theme; no locking is done.
type Remote struct {
	ref   Reference
	dir   string
	state State
}

// NewRemote creates a remote theme that will be materialized into dir.
func NewRemote(ref Reference, dir string) *Remote {
	return &Remote{ref: ref, dir: dir}
}

// ReserveRemote creates a fresh empty directory under base (os.TempDir()
// when empty) and returns a remote theme to be materialized there. Every call
// gets its own directory; no two runs share one.
func ReserveRemote(ref Reference, base string) (*Remote, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, NewExtractionError(base, "failed to create theme cache directory", err)
	}
	dir, err := os.MkdirTemp(base, fmt.Sprintf("%s%s-*", DirPrefix, ref.Name))
	if err != nil {
		return nil, NewExtractionError(base, "failed to reserve theme directory", err)
	}
	return NewRemote(ref, dir), nil
}

// Reference returns the theme reference.
func (t *Remote) Reference() Reference { return t.ref }

// Name returns the repository name.
func (t *Remote) Name() string { return t.ref.Name }

// NameWithOwner returns "owner/name".
func (t *Remote) NameWithOwner() string { return t.ref.NameWithOwner() }

// Dir returns the directory the theme is materialized into.
func (t *Remote) Dir() string { return t.dir }

// Root returns Dir once the theme is downloaded and "" before.
func (t *Remote) Root() string {
	if t.state != Downloaded {
		return ""
	}
	return t.dir
}

// State returns the materialization state.
func (t *Remote) State() State { return t.state }

// MarkDownloaded records that Dir holds a complete theme.
func (t *Remote) MarkDownloaded() { t.state = Downloaded }

func (t *Remote) sealed() {}

// Local is a theme living in a directory owned by the caller's project.
type Local struct {
	root string
	name string
}

// Name returns the base name of the theme directory.
func (t *Local) Name() string { return t.name }

// Root returns the absolute theme directory.
func (t *Local) Root() string { return t.root }

// Valid reports whether the theme directory still exists.
func (t *Local) Valid() bool {
	info, err := os.Stat(t.root)
	return err == nil && info.IsDir()
}

func (t *Local) sealed() {}
