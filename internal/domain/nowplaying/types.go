// Package nowplaying assembles what Kodi is currently playing: item, library
// details, progress and downloaded artwork.
package nowplaying

import (
	"context"
	"time"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
)

// DefaultCheckInterval is how often Poll re-reads the playing item.
const DefaultCheckInterval = 10 * time.Second

// Poll item types.
const (
	ItemTypeEpisode = "episode"
	ItemTypeChange  = "item_change"

	unknownItemID = "episode_unknown"
)

// Remote is the part of the Kodi client the service uses.
type Remote interface {
	GetActivePlayers(ctx context.Context) ([]kodi.ActivePlayer, error)
	GetItem(ctx context.Context, playerID int, properties []string) (*kodi.Item, error)
	GetProperties(ctx context.Context, playerID int) (*kodi.PlayerProperties, error)
	GetEpisodeDetails(ctx context.Context, episodeID int) (kodi.Details, error)
	GetMovieDetails(ctx context.Context, movieID int) (kodi.Details, error)
	GetSongDetails(ctx context.Context, songID int) (kodi.Details, error)
	GetAlbumDetails(ctx context.Context, albumID int) (kodi.Details, error)
	GetArtistDetails(ctx context.Context, artistID int) (kodi.Details, error)
}

// ArtworkRunner downloads the artwork of an item for a session.
type ArtworkRunner interface {
	Run(ctx context.Context, item artwork.Item, sessionID string) *artwork.Result
}

// Progress is the playback position of the active player.
type Progress struct {
	Elapsed  int  `json:"elapsed"`
	Duration int  `json:"duration"`
	Paused   bool `json:"paused"`
	Percent  int  `json:"percent"`
}

// Snapshot is one rendered now-playing view.
type Snapshot struct {
	Playing    bool              `json:"playing"`
	SessionID  string            `json:"sessionId,omitempty"`
	Type       string            `json:"type,omitempty"`
	Item       *kodi.Item        `json:"item,omitempty"`
	Details    kodi.Details      `json:"details,omitempty"`
	Progress   Progress          `json:"progress"`
	Art        map[string]string `json:"art,omitempty"`    // slot -> media URL
	Fanart     []string          `json:"fanart,omitempty"` // media URLs, main first
	RenderedAt time.Time         `json:"renderedAt"`

	Artwork *artwork.Result `json:"-"`
}

// PollState is what Poll remembers between calls. The zero value means
// nothing has been seen yet.
type PollState struct {
	LastItemID string
	LastCheck  time.Time
}

// PollResult is the answer to a playback poll.
type PollResult struct {
	Playing  bool   `json:"playing"`
	Paused   bool   `json:"paused,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	ItemType string `json:"item_type,omitempty"`
	Error    bool   `json:"error,omitempty"`
}

// Changed reports whether the poll detected a new item.
func (r PollResult) Changed() bool {
	return r.ItemType == ItemTypeChange
}
