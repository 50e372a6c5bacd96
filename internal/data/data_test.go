package data

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacogips/remotetheme/internal/theme"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func openLocal(t *testing.T, root string) *theme.Local {
	t.Helper()
	lt, err := theme.OpenLocal(root, "")
	require.NoError(t, err)
	return lt
}

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		site  map[string]any
		theme map[string]any
		want  map[string]any
	}{
		{
			name:  "site wins on conflict, theme fills gaps",
			site:  map[string]any{"a": 1},
			theme: map[string]any{"a": 2, "b": 3},
			want:  map[string]any{"a": 1, "b": 3},
		},
		{
			name:  "absent site key takes theme value verbatim",
			site:  map[string]any{},
			theme: map[string]any{"nav": map[string]any{"items": []any{1, 2}}},
			want:  map[string]any{"nav": map[string]any{"items": []any{1, 2}}},
		},
		{
			name:  "nil or false site value is replaced",
			site:  map[string]any{"a": nil, "b": false},
			theme: map[string]any{"a": "x", "b": "y"},
			want:  map[string]any{"a": "x", "b": "y"},
		},
		{
			name: "nested mappings merge per leaf",
			site: map[string]any{"cfg": map[string]any{
				"title":  "Mine",
				"colors": map[string]any{"fg": "black"},
			}},
			theme: map[string]any{"cfg": map[string]any{
				"title":  "Theme",
				"footer": true,
				"colors": map[string]any{"fg": "white", "bg": "blue"},
			}},
			want: map[string]any{"cfg": map[string]any{
				"title":  "Mine",
				"footer": true,
				"colors": map[string]any{"fg": "black", "bg": "blue"},
			}},
		},
		{
			name:  "nested nil keeps theme value, nested false wins",
			site:  map[string]any{"cfg": map[string]any{"a": nil, "b": false}},
			theme: map[string]any{"cfg": map[string]any{"a": 1, "b": true}},
			want:  map[string]any{"cfg": map[string]any{"a": 1, "b": false}},
		},
		{
			// Sequences append instead of overriding: theme items come first.
			name:  "top-level sequences concatenate theme then site",
			site:  map[string]any{"links": []any{"site-1", "site-2"}},
			theme: map[string]any{"links": []any{"theme-1"}},
			want:  map[string]any{"links": []any{"theme-1", "site-1", "site-2"}},
		},
		{
			name:  "nested sequences are replaced by the site",
			site:  map[string]any{"nav": map[string]any{"items": []any{3}}},
			theme: map[string]any{"nav": map[string]any{"items": []any{1, 2}}},
			want:  map[string]any{"nav": map[string]any{"items": []any{3}}},
		},
		{
			name:  "type mismatch keeps site value",
			site:  map[string]any{"a": "scalar", "b": []any{1}},
			theme: map[string]any{"a": map[string]any{"x": 1}, "b": map[string]any{"y": 2}},
			want:  map[string]any{"a": "scalar", "b": []any{1}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			Merge(tt.site, tt.theme)
			assert.Equal(t, tt.want, tt.site)
		})
	}
}

func TestMerge_DoesNotModifyThemeMaps(t *testing.T) {
	t.Parallel()

	themeCfg := map[string]any{"a": 1}
	site := map[string]any{"cfg": map[string]any{"b": 2}}
	Merge(site, map[string]any{"cfg": themeCfg})

	assert.Equal(t, map[string]any{"a": 1}, themeCfg)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, site["cfg"])
}

func TestMerge_RerunUsesMergedBaseline(t *testing.T) {
	t.Parallel()

	site := map[string]any{"links": []any{"s"}}
	themeData := map[string]any{"links": []any{"t"}}

	Merge(site, themeData)
	Merge(site, themeData)
	assert.Equal(t, []any{"t", "t", "s"}, site["links"])
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "nav", Key("nav.yml"))
	assert.Equal(t, "menus_main", Key("menus/main.yaml"))
	assert.Equal(t, "i18n_en_strings", Key("I18N/en/Strings.JSON"))
	assert.Equal(t, "authors.v2", Key("authors.v2.csv"))
}

func TestDefaultParser(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yml":   "items: [1, 2]\nnested:\n  1: one\n",
		"b.json":  `{"name": "json", "list": [true]}`,
		"c.toml":  "title = \"toml\"\n[owner]\nname = \"acme\"\n",
		"d.csv":   "name,role\nann,admin\nbob,dev\n",
		"e.tsv":   "name\trole\nann\tadmin\n",
		"f.yml":   "  \n",
		"g.yml":   "false\n",
		"bad.yml": "items: [unclosed\n",
	})

	p := DefaultParser{}
	parse := func(name string) any {
		v, err := p.Parse(filepath.Join(dir, name))
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, map[string]any{
		"items":  []any{1, 2},
		"nested": map[string]any{"1": "one"},
	}, parse("a.yml"))
	assert.Equal(t, map[string]any{"name": "json", "list": []any{true}}, parse("b.json"))
	assert.Equal(t, map[string]any{"title": "toml", "owner": map[string]any{"name": "acme"}}, parse("c.toml"))
	assert.Equal(t, []any{
		map[string]any{"name": "ann", "role": "admin"},
		map[string]any{"name": "bob", "role": "dev"},
	}, parse("d.csv"))
	assert.Equal(t, []any{map[string]any{"name": "ann", "role": "admin"}}, parse("e.tsv"))
	assert.Nil(t, parse("f.yml"))
	assert.Equal(t, false, parse("g.yml"))

	_, err := p.Parse(filepath.Join(dir, "bad.yml"))
	assert.Error(t, err)
}

func TestReadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"nav.yml":             "items: [1, 2]\n",
		"menus/Main.yaml":     "- home\n",
		"empty.yml":           "",
		"disabled.yml":        "false\n",
		"README":              "no extension\n",
		".hidden.yml":         "secret: true\n",
		"drafts/.keep/x.yml":  "a: 1\n",
		"authors/people.json": `[{"name": "ann"}]`,
	})

	got, err := NewLoader(nil, nil).ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"nav":            map[string]any{"items": []any{1, 2}},
		"menus_main":     []any{"home"},
		"authors_people": []any{map[string]any{"name": "ann"}},
	}, got)

	got, err = NewLoader(nil, nil).ReadDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadDir_ParserError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.yml": "x: 1\n"})

	_, err := NewLoader(ParserFunc(func(string) (any, error) {
		return nil, errors.New("boom")
	}), nil).ReadDir(dir)
	assert.EqualError(t, err, "boom")
}

func TestLoader_LogsToInjectedLogger(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"_data/nav.yml": "a: 1\n"})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	site := map[string]any{}
	require.NoError(t, NewLoader(nil, logger).LoadThemeData(openLocal(t, root), site, "_data"))
	assert.Contains(t, buf.String(), "loading theme data")
	assert.Contains(t, buf.String(), "reading data file")
}

func TestLoadThemeData(t *testing.T) {
	t.Parallel()

	t.Run("merges theme data into site data", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFiles(t, root, map[string]string{
			"_data/nav.yml":      "items: [1, 2]\n",
			"_data/settings.yml": "a: 2\nb: 3\n",
		})

		site := map[string]any{"settings": map[string]any{"a": 1}}
		require.NoError(t, NewLoader(DefaultParser{}, nil).LoadThemeData(openLocal(t, root), site, "_data"))

		assert.Equal(t, map[string]any{
			"nav":      map[string]any{"items": []any{1, 2}},
			"settings": map[string]any{"a": 1, "b": 3},
		}, site)
	})

	t.Run("custom data dir", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"data/x.yml": "v: 1\n"})

		site := map[string]any{}
		require.NoError(t, NewLoader(nil, nil).LoadThemeData(openLocal(t, root), site, "data"))
		assert.Equal(t, map[string]any{"x": map[string]any{"v": 1}}, site)
	})

	t.Run("missing data dir is a no-op", func(t *testing.T) {
		t.Parallel()
		site := map[string]any{"a": 1}
		require.NoError(t, NewLoader(nil, nil).LoadThemeData(openLocal(t, t.TempDir()), site, "_data"))
		assert.Equal(t, map[string]any{"a": 1}, site)
	})

	t.Run("nil theme is a no-op", func(t *testing.T) {
		t.Parallel()
		site := map[string]any{}
		require.NoError(t, NewLoader(nil, nil).LoadThemeData(nil, site, "_data"))
		assert.Empty(t, site)
	})

	t.Run("remote theme must be downloaded", func(t *testing.T) {
		t.Parallel()
		rt := theme.NewRemote(theme.Reference{Owner: "acme", Name: "t", GitRef: "main", Scheme: "https", Host: "github.com"}, t.TempDir())
		err := NewLoader(nil, nil).LoadThemeData(rt, map[string]any{}, "_data")
		require.Error(t, err)
		assert.True(t, theme.IsKind(err, theme.KindValidation))
	})
}
