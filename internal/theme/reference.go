package theme

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Reference defaults.
const (
	DefaultGitRef = "main"
	DefaultScheme = "https"
	DefaultHost   = "github.com"

	// downloadHostPrefix turns a repository host into its archive host.
	downloadHostPrefix = "codeload."
)

var (
	ownerPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	namePattern  = regexp.MustCompile(`^[\w.-]+$`)
	refPattern   = regexp.MustCompile(`^[\w./-]+$`)
)

// Reference identifies a remote theme repository. It is an immutable value.
type Reference struct {
	Owner  string
	Name   string
	GitRef string
	Scheme string
	Host   string
}

// Spec is the structured form of a remote theme identifier, as found in host
// configuration.
type Spec struct {
	Owner  string `yaml:"owner" json:"owner"`
	Name   string `yaml:"name" json:"name"`
	GitRef string `yaml:"git_ref" json:"git_ref"`
	Host   string `yaml:"host" json:"host"`
	Scheme string `yaml:"scheme" json:"scheme"`
}

// ParseReference parses a theme identifier into a Reference.
// Supported forms:
//   - owner/name
//   - owner/name@ref
//   - https://host/owner/name@ref
//   - Spec, *Spec or a map with owner/name/git_ref (ref)/host/scheme keys
//
// A non-empty explicitRef overrides any ref found in raw.
func ParseReference(raw any, explicitRef string) (Reference, error) {
	var (
		ref Reference
		err error
	)

	switch v := raw.(type) {
	case string:
		ref, err = parseCompact(v)
	case Spec:
		ref, err = fromSpec(v)
	case *Spec:
		if v == nil {
			return Reference{}, NewInvalidReferenceError("", "theme identifier is empty")
		}
		ref, err = fromSpec(*v)
	case map[string]any:
		ref, err = fromMap(v)
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		ref, err = fromMap(m)
	case nil:
		return Reference{}, NewInvalidReferenceError("", "theme identifier is empty")
	default:
		return Reference{}, NewInvalidReferenceError(fmt.Sprintf("%v", raw),
			fmt.Sprintf("unsupported theme identifier type %T", raw))
	}
	if err != nil {
		return Reference{}, err
	}

	if explicitRef != "" {
		ref.GitRef = explicitRef
	}
	if err := ref.validate(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// parseCompact parses the string forms of a theme identifier.
func parseCompact(s string) (Reference, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, NewInvalidReferenceError(raw, "theme identifier is empty")
	}

	ref := Reference{Scheme: DefaultScheme, Host: DefaultHost}

	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return Reference{}, NewError(KindInvalidReference, raw, "invalid theme URL", err)
		}
		ref.Scheme = u.Scheme
		ref.Host = u.Host
		s = strings.Trim(u.Path, "/")
	}

	if idx := strings.Index(s, "@"); idx != -1 {
		ref.GitRef = s[idx+1:]
		s = s[:idx]
		if ref.GitRef == "" {
			return Reference{}, NewInvalidReferenceError(raw, "git ref after '@' cannot be empty")
		}
	}

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Reference{}, NewInvalidReferenceError(raw, "expected owner/name")
	}
	ref.Owner = parts[0]
	ref.Name = strings.TrimSuffix(parts[1], ".git")
	return ref, nil
}

func fromSpec(spec Spec) (Reference, error) {
	ref := Reference{
		Owner:  strings.TrimSpace(spec.Owner),
		Name:   strings.TrimSpace(spec.Name),
		GitRef: strings.TrimSpace(spec.GitRef),
		Scheme: strings.TrimSpace(spec.Scheme),
		Host:   strings.TrimSpace(spec.Host),
	}
	if ref.Scheme == "" {
		ref.Scheme = DefaultScheme
	}
	if ref.Host == "" {
		ref.Host = DefaultHost
	}
	return ref, nil
}

func fromMap(m map[string]any) (Reference, error) {
	spec, err := specFromMap(m)
	if err != nil {
		return Reference{}, err
	}
	return fromSpec(spec)
}

func specFromMap(m map[string]any) (Spec, error) {
	var bad error
	str := func(keys ...string) string {
		for _, k := range keys {
			v, ok := m[k]
			if !ok || v == nil {
				continue
			}
			switch v.(type) {
			case map[string]any, map[any]any, []any:
				if bad == nil {
					bad = NewInvalidReferenceError(fmt.Sprint(m),
						fmt.Sprintf("theme %s has the wrong type %T", k, v))
				}
				return ""
			}
			return fmt.Sprint(v)
		}
		return ""
	}
	spec := Spec{
		Owner:  str("owner"),
		Name:   str("name"),
		GitRef: str("git_ref", "ref"),
		Host:   str("host"),
		Scheme: str("scheme"),
	}
	return spec, bad
}

func (r *Reference) validate() error {
	subject := r.NameWithOwner()
	if r.Owner == "" || r.Name == "" {
		return NewInvalidReferenceError(subject, "owner and name cannot be empty")
	}
	if !ownerPattern.MatchString(r.Owner) {
		return NewInvalidReferenceError(subject, fmt.Sprintf("invalid owner %q", r.Owner))
	}
	if !namePattern.MatchString(r.Name) || r.Name == "." || r.Name == ".." {
		return NewInvalidReferenceError(subject, fmt.Sprintf("invalid repository name %q", r.Name))
	}
	if r.GitRef == "" {
		r.GitRef = DefaultGitRef
	}
	if !refPattern.MatchString(r.GitRef) || strings.Contains(r.GitRef, "..") {
		return NewInvalidReferenceError(subject, fmt.Sprintf("invalid git ref %q", r.GitRef))
	}
	if r.Scheme != "https" && r.Scheme != "http" {
		return NewInvalidReferenceError(subject, fmt.Sprintf("unsupported scheme %q", r.Scheme))
	}
	return nil
}

// NameWithOwner returns "owner/name".
func (r Reference) NameWithOwner() string {
	return r.Owner + "/" + r.Name
}

// String returns "owner/name@ref", prefixed by the host when it is not the default.
func (r Reference) String() string {
	s := r.NameWithOwner() + "@" + r.GitRef
	if r.Host != "" && r.Host != DefaultHost {
		s = r.Host + "/" + s
	}
	return s
}

// DownloadHost returns the host serving archives for this reference.
func (r Reference) DownloadHost() string {
	return downloadHostPrefix + r.Host
}

// ArchiveURL returns the normalized codeload URL for the zip archive.
func (r Reference) ArchiveURL() string {
	return r.archiveURL(r.Scheme + "://" + r.DownloadHost())
}

// ArchiveURLAt returns the archive URL with scheme and host replaced by base,
// for mirrors and test servers.
func (r Reference) ArchiveURLAt(base string) string {
	return r.archiveURL(strings.TrimRight(base, "/"))
}

func (r Reference) archiveURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "/" + strings.Join([]string{r.Owner, r.Name, "zip", r.GitRef}, "/")
	}
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	u = u.JoinPath(r.Owner, r.Name, "zip", r.GitRef)
	return u.String()
}
