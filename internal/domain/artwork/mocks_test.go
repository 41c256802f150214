package artwork_test

import (
	"context"
	"errors"
	"sync"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
)

var errNotFound = errors.New("file not found")

// MockRemote implements RemoteFiles from fixed maps and records every call.
type MockRemote struct {
	mu        sync.Mutex
	downloads map[string]artwork.DownloadDetails
	dirs      map[string][]artwork.DirEntry
	prepared  []string
	listed    []string
}

func (m *MockRemote) PrepareDownload(ctx context.Context, path string) (artwork.DownloadDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepared = append(m.prepared, path)
	if d, ok := m.downloads[path]; ok {
		return d, nil
	}
	return artwork.DownloadDetails{}, errNotFound
}

func (m *MockRemote) ListDirectory(ctx context.Context, dir string) ([]artwork.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = append(m.listed, dir)
	if entries, ok := m.dirs[dir]; ok {
		return entries, nil
	}
	return nil, errNotFound
}

func (m *MockRemote) Prepared() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prepared...)
}

func (m *MockRemote) Listed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.listed...)
}

// MockProber reports existence from a URL set.
type MockProber struct {
	exists map[string]bool
	probed []string
}

func (m *MockProber) Exists(ctx context.Context, addr artwork.ResolvedAddress) bool {
	m.probed = append(m.probed, addr.URL)
	return m.exists[addr.URL]
}
