package config

import (
	"gopkg.in/yaml.v3"

	"github.com/tacogips/remotetheme/internal/theme"
)

// Configuration keys read from the site configuration.
const (
	KeyRemoteTheme = "remote_theme"
	KeyLocalTheme  = "local_theme"
	KeyInclude     = "include"
	KeyDataDir     = "data_dir"
	KeyProxy       = "proxy"
)

// Config is the subset of the site configuration this tool reads, plus every
// other key preserved verbatim in Extra.
type Config struct {
	// Source is the site source directory.
	Source string `yaml:"source,omitempty"`
	// RemoteTheme names a theme repository. Mutually exclusive with LocalTheme.
	RemoteTheme *RemoteTheme `yaml:"remote_theme,omitempty"`
	// LocalTheme is a theme directory, relative to Source when not absolute.
	LocalTheme string `yaml:"local_theme,omitempty"`
	// Theme is the resolved theme name, written after resolution.
	Theme string `yaml:"theme,omitempty"`
	// Include lists theme files (or doublestar globs) copied into the site when
	// missing locally.
	Include []string `yaml:"include,omitempty"`
	// DataDir is the data directory name, in the site and in the theme.
	DataDir string `yaml:"data_dir,omitempty"`
	// Proxy routes theme downloads through an HTTP proxy.
	Proxy Proxy `yaml:"proxy,omitempty"`
	// Extra holds keys this tool does not interpret.
	Extra map[string]any `yaml:",inline"`
}

// Proxy configures an HTTP proxy. An empty Address means a direct connection.
type Proxy struct {
	Address  string `yaml:"address,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// RemoteTheme is the remote_theme value: either a compact identifier string
// ("owner/name@ref") or a mapping with owner/name/git_ref keys. Values of any
// other shape are kept in Raw so theme resolution can reject them.
type RemoteTheme struct {
	Identifier string
	Spec       *theme.Spec
	Raw        any
}

// UnmarshalYAML accepts any node. Scalars and well-formed mappings are
// decoded; everything else is kept raw.
func (r *RemoteTheme) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&r.Identifier)
	case yaml.MappingNode:
		var spec theme.Spec
		if err := value.Decode(&spec); err != nil {
			return value.Decode(&r.Raw)
		}
		if spec.GitRef == "" {
			// "ref" is accepted as an alias of "git_ref".
			var alias struct {
				Ref string `yaml:"ref"`
			}
			if err := value.Decode(&alias); err != nil {
				return value.Decode(&r.Raw)
			}
			spec.GitRef = alias.Ref
		}
		r.Spec = &spec
		return nil
	default:
		return value.Decode(&r.Raw)
	}
}

// MarshalYAML writes the value back in its original shape.
func (r RemoteTheme) MarshalYAML() (any, error) {
	switch {
	case r.Raw != nil:
		return r.Raw, nil
	case r.Spec != nil:
		return r.Spec, nil
	default:
		return r.Identifier, nil
	}
}

// Value returns the identifier in a form accepted by theme.ParseReference.
func (r *RemoteTheme) Value() any {
	switch {
	case r == nil:
		return nil
	case r.Raw != nil:
		return r.Raw
	case r.Spec != nil:
		return *r.Spec
	default:
		return r.Identifier
	}
}

// IsZero reports whether no remote theme is configured.
func (r *RemoteTheme) IsZero() bool {
	return r == nil || (r.Identifier == "" && r.Spec == nil && r.Raw == nil)
}

// ThemeMode is the kind of theme a configuration selects.
type ThemeMode int

const (
	// ThemeNone means no theme is configured.
	ThemeNone ThemeMode = iota
	// ThemeRemote means remote_theme is set.
	ThemeRemote
	// ThemeLocal means local_theme is set and remote_theme is not.
	ThemeLocal
)

// Mode returns which theme key drives resolution. remote_theme wins when both
// are present.
func (c *Config) Mode() ThemeMode {
	switch {
	case !c.RemoteTheme.IsZero():
		return ThemeRemote
	case c.LocalTheme != "":
		return ThemeLocal
	default:
		return ThemeNone
	}
}
