package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacogips/remotetheme/internal/acquire"
	"github.com/tacogips/remotetheme/internal/archive"
	"github.com/tacogips/remotetheme/internal/config"
	"github.com/tacogips/remotetheme/internal/fetch"
	"github.com/tacogips/remotetheme/internal/include"
	"github.com/tacogips/remotetheme/internal/teardown"
	"github.com/tacogips/remotetheme/internal/theme"
)

// zipBytes builds an in-memory zip archive.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newSite(t *testing.T, yml string) *Site {
	t.Helper()
	cfg, err := config.Parse([]byte(yml))
	require.NoError(t, err)
	cfg.Source = t.TempDir()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

// themeServer serves archive for every request and counts requests.
func themeServer(t *testing.T, payload []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/acme/sometheme/zip/main" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newRemoteStack(t *testing.T, endpoint string) (*Pipeline, *teardown.Registry) {
	t.Helper()
	td := teardown.New(nil)

	f := fetch.New(nil)
	f.Endpoint = endpoint
	f.TempDir = t.TempDir()

	acq := acquire.New(f, archive.New(nil), td, nil)
	resolver := NewResolver(acq, t.TempDir(), nil)
	return NewPipeline(resolver, include.New(td, nil), nil, nil), td
}

type countingAcquirer struct {
	calls int
	err   error
}

func (a *countingAcquirer) Acquire(_ context.Context, t *theme.Remote, _ config.Proxy) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	if err := os.MkdirAll(filepath.Join(t.Dir(), "_layouts"), 0o755); err != nil {
		return err
	}
	t.MarkDownloaded()
	return nil
}

func TestPipeline_RemoteThemeEndToEnd(t *testing.T) {
	t.Parallel()

	srv, hits := themeServer(t, zipBytes(t, map[string]string{
		"sometheme-main/_data/nav.yml":         "items: [1,2]\n",
		"sometheme-main/_layouts/default.html": "<html>{{ content }}</html>",
		"sometheme-main/_includes/footer.html": "footer",
		"sometheme-main/assets/css/style.scss": "body {}",
	}))
	p, td := newRemoteStack(t, srv.URL)

	s := newSite(t, "remote_theme: acme/sometheme\ninclude:\n  - assets/css/style.scss\n")
	require.NoError(t, p.Run(context.Background(), s))

	rt, ok := s.Theme.(*theme.Remote)
	require.True(t, ok, "expected a remote theme, got %T", s.Theme)
	root := rt.Root()
	require.NotEmpty(t, root)

	assert.FileExists(t, filepath.Join(root, "_layouts", "default.html"))
	assert.NoDirExists(t, filepath.Join(root, "sometheme-main"))
	assert.Equal(t, map[string]any{"items": []any{1, 2}}, s.Data["nav"])
	assert.Equal(t, "sometheme", s.Config.Theme)
	assert.Equal(t, []string{filepath.Join(root, "_includes")}, s.IncludesLoadPaths)
	assert.Equal(t, []string{filepath.Join(root, "_layouts")}, s.LayoutsLoadPaths)
	assert.Empty(t, s.SassLoadPaths)
	assert.Equal(t, []string{"assets/css/style.scss"}, s.StaticFiles)
	assert.FileExists(t, filepath.Join(s.Source, "assets", "css", "style.scss"))

	// Regeneration reuses the theme without another download.
	require.NoError(t, p.Run(context.Background(), s))
	assert.Equal(t, int32(1), hits.Load())
	assert.Same(t, rt, s.Theme)

	td.Run()
	assert.NoDirExists(t, root)
	assert.NoFileExists(t, filepath.Join(s.Source, "assets", "css", "style.scss"))
	assert.NoDirExists(t, filepath.Join(s.Source, "assets"))
}

func TestPipeline_SiteDataWins(t *testing.T) {
	t.Parallel()

	themeRoot := t.TempDir()
	writeFiles(t, themeRoot, map[string]string{
		"_data/settings.yml": "a: 2\nb: 3\n",
		"_data/links.yml":    "- theme\n",
	})

	s := newSite(t, "local_theme: "+themeRoot+"\n")
	writeFiles(t, s.Source, map[string]string{
		"_data/settings.yml": "a: 1\n",
		"_data/links.yml":    "- site\n",
	})

	p := NewPipeline(NewResolver(&countingAcquirer{}, "", nil), nil, nil, nil)
	require.NoError(t, p.Run(context.Background(), s))

	assert.Equal(t, map[string]any{"a": 1, "b": 3}, s.Data["settings"])
	assert.Equal(t, []any{"theme", "site"}, s.Data["links"])
}

func TestPipeline_NoTheme(t *testing.T) {
	t.Parallel()

	s := newSite(t, "title: plain\n")
	writeFiles(t, s.Source, map[string]string{"_data/a.yml": "x: 1\n"})

	acq := &countingAcquirer{}
	p := NewPipeline(NewResolver(acq, "", nil), nil, nil, nil)
	require.NoError(t, p.Run(context.Background(), s))

	assert.Nil(t, s.Theme)
	assert.Equal(t, map[string]any{"a": map[string]any{"x": 1}}, s.Data)
	assert.Equal(t, 0, acq.calls)
}

func TestPipeline_LocalThemeRemovedBetweenRuns(t *testing.T) {
	t.Parallel()

	themeRoot := filepath.Join(t.TempDir(), "mine")
	writeFiles(t, themeRoot, map[string]string{"_data/a.yml": "x: 1\n"})

	s := newSite(t, "local_theme: "+themeRoot+"\n")
	p := NewPipeline(NewResolver(&countingAcquirer{}, "", nil), nil, nil, nil)
	require.NoError(t, p.Run(context.Background(), s))

	require.NoError(t, os.RemoveAll(themeRoot))
	err := p.Run(context.Background(), s)
	require.Error(t, err)
	assert.True(t, theme.IsKind(err, theme.KindValidation))
}

func TestResolve_CachesTheme(t *testing.T) {
	t.Parallel()

	acq := &countingAcquirer{}
	r := NewResolver(acq, t.TempDir(), nil)
	s := newSite(t, "remote_theme: acme/sometheme@v1\n")

	first, err := r.Resolve(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := r.Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, acq.calls)
	assert.Equal(t, "sometheme", s.Config.Theme)
}

func TestResolve_SeparateRunsUseSeparateDirectories(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	var roots []string
	for i := 0; i < 2; i++ {
		r := NewResolver(&countingAcquirer{}, cacheDir, nil)
		h, err := r.Resolve(context.Background(), newSite(t, "remote_theme: acme/sometheme\n"))
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.Equal(t, cacheDir, filepath.Dir(h.Root()))
		roots = append(roots, h.Root())
	}
	assert.NotEqual(t, roots[0], roots[1])
}

func TestResolve_InvalidThemesDegradeToNil(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yml  string
	}{
		{"no slash", "remote_theme: justaname\n"},
		{"empty owner", "remote_theme: /name\n"},
		{"too many segments", "remote_theme: a/b/c\n"},
		{"sequence", "remote_theme:\n  - acme/sometheme\n"},
		{"mapping with list owner", "remote_theme:\n  owner: [acme]\n  name: sometheme\n"},
		{"missing local directory", "local_theme: ./does-not-exist\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acq := &countingAcquirer{}
			r := NewResolver(acq, t.TempDir(), nil)
			s := newSite(t, tt.yml)

			h, err := r.Resolve(context.Background(), s)
			require.NoError(t, err)
			assert.Nil(t, h)
			assert.Nil(t, s.Theme)
			assert.Empty(t, s.Config.Theme)
			assert.Equal(t, 0, acq.calls)
		})
	}
}

func TestResolve_RemoteWinsOverLocal(t *testing.T) {
	t.Parallel()

	acq := &countingAcquirer{}
	r := NewResolver(acq, t.TempDir(), nil)
	s := newSite(t, "remote_theme: acme/sometheme\nlocal_theme: ./mine\n")

	h, err := r.Resolve(context.Background(), s)
	require.NoError(t, err)
	_, ok := h.(*theme.Remote)
	assert.True(t, ok)
	assert.Equal(t, 1, acq.calls)
}

func TestResolve_LocalTheme(t *testing.T) {
	t.Parallel()

	s := newSite(t, "local_theme: themes/mine\n")
	writeFiles(t, s.Source, map[string]string{
		"themes/mine/_layouts/default.html": "layout",
		"themes/mine/_sass/main.scss":       "",
	})

	acq := &countingAcquirer{}
	h, err := NewResolver(acq, "", nil).Resolve(context.Background(), s)
	require.NoError(t, err)

	lt, ok := h.(*theme.Local)
	require.True(t, ok)
	root := filepath.Join(s.Source, "themes", "mine")
	assert.Equal(t, root, lt.Root())
	assert.Equal(t, "mine", s.Config.Theme)
	assert.Equal(t, []string{filepath.Join(root, "_layouts")}, s.LayoutsLoadPaths)
	assert.Equal(t, []string{filepath.Join(root, "_sass")}, s.SassLoadPaths)
	assert.Empty(t, s.IncludesLoadPaths)
	assert.Equal(t, 0, acq.calls)
}

func TestResolve_DownloadErrorPropagates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	p, _ := newRemoteStack(t, srv.URL)

	s := newSite(t, "remote_theme: acme/sometheme\n")
	err := p.Run(context.Background(), s)
	require.Error(t, err)
	assert.True(t, theme.IsKind(err, theme.KindDownload))
	assert.Contains(t, err.Error(), "404")
	assert.Nil(t, s.Theme)
}

func TestResolve_HookErrorIsReturned(t *testing.T) {
	t.Parallel()

	r := NewResolver(&countingAcquirer{}, t.TempDir(), nil)
	var seen theme.Handle
	r.AddHook(func(_ context.Context, _ *Site, h theme.Handle) error {
		seen = h
		return errors.New("sass setup failed")
	})

	s := newSite(t, "remote_theme: acme/sometheme\n")
	h, err := r.Resolve(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sass setup failed")
	assert.Same(t, h, seen)
}

func TestSite_AddStaticFile(t *testing.T) {
	t.Parallel()

	s := &Site{}
	s.AddStaticFile("a.css")
	s.AddStaticFile("a.css")
	s.AddStaticFile("b.css")
	assert.Equal(t, []string{"a.css", "b.css"}, s.StaticFiles)
}
