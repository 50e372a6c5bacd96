package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         any
		explicitRef string
		want        Reference
	}{
		{
			name: "owner/name",
			raw:  "acme/sometheme",
			want: Reference{Owner: "acme", Name: "sometheme", GitRef: "main", Scheme: "https", Host: "github.com"},
		},
		{
			name: "owner/name@ref",
			raw:  "acme/sometheme@v1.2.0",
			want: Reference{Owner: "acme", Name: "sometheme", GitRef: "v1.2.0", Scheme: "https", Host: "github.com"},
		},
		{
			name: "case preserved",
			raw:  "Acme/SomeTheme",
			want: Reference{Owner: "Acme", Name: "SomeTheme", GitRef: "main", Scheme: "https", Host: "github.com"},
		},
		{
			name: "enterprise URL",
			raw:  "https://git.example.com/acme/sometheme@feature/dark",
			want: Reference{Owner: "acme", Name: "sometheme", GitRef: "feature/dark", Scheme: "https", Host: "git.example.com"},
		},
		{
			name:        "explicit ref overrides",
			raw:         "acme/sometheme@v1",
			explicitRef: "v2",
			want:        Reference{Owner: "acme", Name: "sometheme", GitRef: "v2", Scheme: "https", Host: "github.com"},
		},
		{
			name: "spec",
			raw:  Spec{Owner: "acme", Name: "sometheme", GitRef: "dev"},
			want: Reference{Owner: "acme", Name: "sometheme", GitRef: "dev", Scheme: "https", Host: "github.com"},
		},
		{
			name: "map with ref alias",
			raw:  map[string]any{"owner": "acme", "name": "sometheme", "ref": "abc1234"},
			want: Reference{Owner: "acme", Name: "sometheme", GitRef: "abc1234", Scheme: "https", Host: "github.com"},
		},
		{
			name: "yaml style map",
			raw:  map[any]any{"owner": "acme", "name": "sometheme", "git_ref": "dev"},
			want: Reference{Owner: "acme", Name: "sometheme", GitRef: "dev", Scheme: "https", Host: "github.com"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseReference(tt.raw, tt.explicitRef)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReference_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
	}{
		{"empty", ""},
		{"nil", nil},
		{"no slash", "sometheme"},
		{"empty owner", "/sometheme"},
		{"empty name", "acme/"},
		{"too many segments", "acme/some/theme"},
		{"empty ref", "acme/sometheme@"},
		{"traversal name", "acme/.."},
		{"traversal ref", "acme/sometheme@../../etc"},
		{"bad owner", "ac me/sometheme"},
		{"unsupported type", 42},
		{"spec without name", Spec{Owner: "acme"}},
		{"sequence", []any{"acme/sometheme"}},
		{"mapping with list owner", map[string]any{"owner": []any{"acme"}, "name": "sometheme"}},
		{"mapping with nested ref", map[string]any{"owner": "acme", "name": "sometheme", "ref": map[string]any{"a": 1}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseReference(tt.raw, "")
			require.Error(t, err)
			assert.True(t, IsKind(err, KindInvalidReference), "got %v", err)
		})
	}
}

func TestReference_ArchiveURL(t *testing.T) {
	t.Parallel()

	ref, err := ParseReference("acme/sometheme", "")
	require.NoError(t, err)
	assert.Equal(t, "https://codeload.github.com/acme/sometheme/zip/main", ref.ArchiveURL())

	ref, err = ParseReference("https://Git.Example.com/acme/sometheme@v1.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "https://codeload.git.example.com/acme/sometheme/zip/v1.0.0", ref.ArchiveURL())

	assert.Equal(t, "http://127.0.0.1:8080/acme/sometheme/zip/v1.0.0", ref.ArchiveURLAt("http://127.0.0.1:8080/"))
}

func TestReference_String(t *testing.T) {
	t.Parallel()

	ref := Reference{Owner: "acme", Name: "t", GitRef: "main", Scheme: "https", Host: "github.com"}
	assert.Equal(t, "acme/t@main", ref.String())

	ref.Host = "git.example.com"
	assert.Equal(t, "git.example.com/acme/t@main", ref.String())
}
