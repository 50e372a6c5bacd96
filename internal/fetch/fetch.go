// Package fetch downloads theme archives.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"

	"github.com/tacogips/remotetheme/internal/config"
	"github.com/tacogips/remotetheme/internal/theme"
	"github.com/tacogips/remotetheme/internal/version"
)

// DefaultMaxArchiveSize is the largest archive accepted (1 GiB).
const DefaultMaxArchiveSize int64 = 1 << 30

// ProjectURL is advertised in the User-Agent header.
const ProjectURL = "https://github.com/tacogips/remotetheme"

// UserAgent returns the client identifier sent with every download.
func UserAgent() string {
	return fmt.Sprintf("remotetheme/%s (+%s)", version.Version(), ProjectURL)
}

// Fetcher downloads theme archives into temporary files.
type Fetcher struct {
	// Timeout bounds a whole download. Zero means no timeout.
	Timeout time.Duration
	// MaxArchiveSize is the maximum payload size in bytes.
	MaxArchiveSize int64
	// Endpoint, when set, replaces "<scheme>://codeload.<host>" in archive URLs.
	Endpoint string
	// TempDir holds downloaded archives. Empty means os.TempDir().
	TempDir string
	// Transport is the base round tripper. Nil means a clone of
	// http.DefaultTransport.
	Transport *http.Transport

	logger *slog.Logger
}

// New creates a Fetcher with the default size limit.
func New(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		Timeout:        10 * time.Minute,
		MaxArchiveSize: DefaultMaxArchiveSize,
		logger:         logger,
	}
}

// URL returns the archive URL this fetcher requests for ref.
func (f *Fetcher) URL(ref theme.Reference) string {
	if f.Endpoint != "" {
		return ref.ArchiveURLAt(f.Endpoint)
	}
	return ref.ArchiveURL()
}

// Fetch downloads the archive for ref and returns the path of a temporary file
// holding it. The caller owns the file. No retry is attempted.
func (f *Fetcher) Fetch(ctx context.Context, ref theme.Reference, proxy config.Proxy) (string, error) {
	archiveURL := f.URL(ref)

	client, err := f.client(proxy)
	if err != nil {
		return "", theme.NewDownloadError(archiveURL, "invalid proxy configuration", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return "", theme.NewDownloadError(archiveURL, "failed to build request", err)
	}
	req.Header.Set("User-Agent", UserAgent())

	f.logger.Debug("downloading theme archive", "url", archiveURL, "proxy", proxy.Address != "")

	resp, err := client.Do(req)
	if err != nil {
		return "", theme.NewDownloadError(archiveURL, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", theme.NewDownloadError(archiveURL,
			fmt.Sprintf("%d - %s - Loading URL: %s", resp.StatusCode, http.StatusText(resp.StatusCode), archiveURL), nil)
	}

	limit := f.maxSize()
	if resp.ContentLength > limit {
		return "", theme.NewDownloadError(archiveURL,
			fmt.Sprintf("maximum file size of %s exceeded (content length %s)",
				units.BytesSize(float64(limit)), units.BytesSize(float64(resp.ContentLength))), nil)
	}

	tmpFile, err := os.CreateTemp(f.TempDir, theme.DirPrefix+"*.zip")
	if err != nil {
		return "", theme.NewDownloadError(archiveURL, "failed to create temp file", err)
	}
	tmpPath := tmpFile.Name()

	written, err := io.Copy(tmpFile, io.LimitReader(resp.Body, limit+1))
	if closeErr := tmpFile.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > limit {
		err = errSizeExceeded
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(err, errSizeExceeded) {
			return "", theme.NewDownloadError(archiveURL,
				fmt.Sprintf("maximum file size of %s exceeded", units.BytesSize(float64(limit))), nil)
		}
		return "", theme.NewDownloadError(archiveURL, "failed to download archive", err)
	}

	f.logger.Debug("downloaded theme archive", "url", archiveURL, "path", tmpPath,
		"size", units.BytesSize(float64(written)))
	return tmpPath, nil
}

var errSizeExceeded = errors.New("archive size limit exceeded")

func (f *Fetcher) maxSize() int64 {
	if f.MaxArchiveSize <= 0 {
		return DefaultMaxArchiveSize
	}
	return f.MaxArchiveSize
}

// client builds an HTTP client routed through proxy when it has an address.
// Environment proxy settings are ignored: the host configuration decides.
func (f *Fetcher) client(proxy config.Proxy) (*http.Client, error) {
	var transport *http.Transport
	if f.Transport != nil {
		transport = f.Transport.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.Proxy = nil

	proxyURL, err := ProxyURL(proxy)
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Timeout:   f.Timeout,
		Transport: transport,
	}, nil
}

// ProxyURL converts proxy settings into a proxy URL. It returns nil when no
// address is configured.
func ProxyURL(proxy config.Proxy) (*url.URL, error) {
	if proxy.Address == "" {
		return nil, nil
	}

	host := proxy.Address
	if proxy.Port != 0 {
		if proxy.Port < 0 || proxy.Port > 65535 {
			return nil, fmt.Errorf("proxy port out of range: %d", proxy.Port)
		}
		host = net.JoinHostPort(proxy.Address, strconv.Itoa(proxy.Port))
	}

	u := &url.URL{Scheme: "http", Host: host}
	switch {
	case proxy.Username != "" && proxy.Password != "":
		u.User = url.UserPassword(proxy.Username, proxy.Password)
	case proxy.Username != "":
		u.User = url.User(proxy.Username)
	}
	return u, nil
}
