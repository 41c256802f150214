package artwork

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultFetchTimeout bounds a single artwork download.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultProbeTimeout bounds an existence check.
	DefaultProbeTimeout = 3 * time.Second

	// MaxImageSize is the maximum number of bytes stored per image.
	MaxImageSize = 10 * 1024 * 1024

	userAgent = "kodi-nowplaying/1.0"
)

// StatusError is returned when an artwork server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("artwork fetch %s: status %d", e.URL, e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the artwork server.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// Fetcher downloads resolved addresses into the cache directory.
type Fetcher struct {
	httpClient   *http.Client
	dir          string
	cache        *SessionCache
	remoteHost   string
	username     string
	password     string
	timeout      time.Duration
	probeTimeout time.Duration
}

// FetcherOption is a functional option for configuring the fetcher.
type FetcherOption func(*Fetcher)

// WithRemoteAuth sets the credentials sent to the Kodi web server. They are
// only attached to requests whose host is remoteHost.
func WithRemoteAuth(remoteHost, username, password string) FetcherOption {
	return func(f *Fetcher) {
		f.remoteHost = remoteHost
		f.username = username
		f.password = password
	}
}

// WithFetchTimeout sets the download timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithProbeTimeout sets the existence check timeout.
func WithProbeTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.probeTimeout = d
	}
}

// NewFetcher creates a fetcher storing files in dir and recording them in cache.
func NewFetcher(dir string, cache *SessionCache, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient:   &http.Client{},
		dir:          dir,
		cache:        cache,
		timeout:      DefaultFetchTimeout,
		probeTimeout: DefaultProbeTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads addr and stores it as <sessionID>_<key>.jpg. An entry
// already cached for the session slot is returned without downloading.
func (f *Fetcher) Fetch(ctx context.Context, addr ResolvedAddress, sessionID, key string) (CacheEntry, error) {
	if entry, ok := f.cache.Get(sessionID, key); ok {
		return entry, nil
	}

	data, err := f.download(ctx, addr.URL)
	if err != nil {
		return CacheEntry{}, err
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return CacheEntry{}, fmt.Errorf("create cache dir: %w", err)
	}
	localFile := filepath.Join(f.dir, FileName(sessionID, key))
	if err := os.WriteFile(localFile, data, 0644); err != nil {
		return CacheEntry{}, fmt.Errorf("write %s: %w", localFile, err)
	}

	entry, err := f.cache.Put(sessionID, key, localFile)
	if err != nil {
		return CacheEntry{}, err
	}

	log.Debug().
		Str("session", sessionID).
		Str("key", key).
		Str("kind", addr.Kind.String()).
		Int("bytes", len(data)).
		Msg("Fetched artwork")
	return entry, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	f.authorize(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > MaxImageSize {
		return nil, fmt.Errorf("fetch %s: %w (%d bytes)", rawURL, ErrTooLarge, resp.ContentLength)
	}

	// One byte past the limit tells a full-size image from an oversized one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrTooLarge)
	}
	return data, nil
}

// Exists issues a HEAD request and reports whether it answered 200.
func (f *Fetcher) Exists(ctx context.Context, addr ResolvedAddress) bool {
	ctx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, addr.URL, nil)
	if err != nil {
		return false
	}
	f.authorize(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", addr.URL).Msg("Probe failed")
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (f *Fetcher) authorize(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if f.username == "" || f.remoteHost == "" {
		return
	}
	if sameHost(req.URL, f.remoteHost) {
		req.SetBasicAuth(f.username, f.password)
	}
}

// sameHost compares the request host with the Kodi host, with or without port.
func sameHost(u *url.URL, host string) bool {
	if strings.EqualFold(u.Host, host) {
		return true
	}
	return strings.EqualFold(u.Hostname(), host)
}
