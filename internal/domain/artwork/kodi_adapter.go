package artwork

import (
	"context"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
)

// KodiFiles adapts the Kodi JSON-RPC client to RemoteFiles.
type KodiFiles struct {
	client *kodi.Client
}

// NewKodiFiles wraps client.
func NewKodiFiles(client *kodi.Client) *KodiFiles {
	return &KodiFiles{client: client}
}

// PrepareDownload calls Files.PrepareDownload.
func (k *KodiFiles) PrepareDownload(ctx context.Context, path string) (DownloadDetails, error) {
	details, err := k.client.PrepareDownload(ctx, path)
	if err != nil {
		return DownloadDetails{}, err
	}
	return DownloadDetails{Token: details.Token, Path: details.Path}, nil
}

// ListDirectory calls Files.GetDirectory.
func (k *KodiFiles) ListDirectory(ctx context.Context, dir string) ([]DirEntry, error) {
	files, err := k.client.GetDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	entries := make([]DirEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, DirEntry{File: f.File, IsDir: f.IsDir()})
	}
	return entries, nil
}
