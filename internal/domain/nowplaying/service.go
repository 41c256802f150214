package nowplaying

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
)

// MediaPrefix is the URL path under which downloaded artwork is served.
const MediaPrefix = "/media/"

// MediaURL returns the served URL of a cached artwork file.
func MediaURL(fileName string) string {
	return MediaPrefix + url.PathEscape(fileName)
}

// pollProperties is the light property set used to identify the playing item.
var pollProperties = []string{"title", "album", "artist", "showtitle", "season", "episode", "file"}

// Service answers now-playing queries against Kodi.
type Service struct {
	remote        Remote
	artwork       ArtworkRunner
	checkInterval time.Duration
	now           func() time.Time
}

// Option is a functional option for configuring the service.
type Option func(*Service)

// WithCheckInterval sets how often Poll re-reads the playing item.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Service) {
		s.checkInterval = d
	}
}

// NewService creates a service. art may be nil, in which case snapshots
// carry no artwork.
func NewService(remote Remote, art ArtworkRunner, opts ...Option) *Service {
	s := &Service{
		remote:        remote,
		artwork:       art,
		checkInterval: DefaultCheckInterval,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSessionID returns a fresh 32 character hex session id.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ActiveItem returns the item of the first active player.
func (s *Service) ActiveItem(ctx context.Context) (*kodi.Item, int, error) {
	playerID, err := s.activePlayer(ctx)
	if err != nil {
		return nil, 0, err
	}

	item, err := s.remote.GetItem(ctx, playerID, kodi.ItemProperties)
	if err != nil {
		return nil, playerID, fmt.Errorf("get item: %w", err)
	}
	return item, playerID, nil
}

func (s *Service) activePlayer(ctx context.Context) (int, error) {
	players, err := s.remote.GetActivePlayers(ctx)
	if err != nil {
		return 0, fmt.Errorf("get active players: %w", err)
	}
	if len(players) == 0 {
		return 0, kodi.ErrNoActivePlayer
	}
	return players[0].PlayerID, nil
}

// Progress reads the position of playerID.
func (s *Service) Progress(ctx context.Context, playerID int) (Progress, error) {
	props, err := s.remote.GetProperties(ctx, playerID)
	if err != nil {
		return Progress{}, fmt.Errorf("get properties: %w", err)
	}
	return progressOf(props), nil
}

// CurrentProgress reads the position of the active player. Without a player
// the position is zero and paused.
func (s *Service) CurrentProgress(ctx context.Context) (Progress, error) {
	playerID, err := s.activePlayer(ctx)
	if errors.Is(err, kodi.ErrNoActivePlayer) {
		return Progress{Paused: true}, nil
	}
	if err != nil {
		return Progress{}, err
	}
	return s.Progress(ctx, playerID)
}

func progressOf(props *kodi.PlayerProperties) Progress {
	p := Progress{
		Elapsed:  props.Time.TotalSeconds(),
		Duration: props.TotalTime.TotalSeconds(),
		Paused:   props.Speed == 0,
	}
	if p.Duration > 0 {
		p.Percent = p.Elapsed * 100 / p.Duration
	}
	return p
}

// Render builds a full snapshot of the playing item and downloads its artwork
// under a new session. Missing details, progress or artwork degrade the
// snapshot; only a failure to read the item itself is an error.
func (s *Service) Render(ctx context.Context) (*Snapshot, error) {
	item, playerID, err := s.ActiveItem(ctx)
	if errors.Is(err, kodi.ErrNoActivePlayer) {
		return &Snapshot{Playing: false, Progress: Progress{Paused: true}, RenderedAt: s.now()}, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Playing:    true,
		SessionID:  NewSessionID(),
		Type:       item.Type,
		Item:       item,
		Details:    s.Details(ctx, item),
		RenderedAt: s.now(),
	}

	progress, err := s.Progress(ctx, playerID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read playback progress")
		progress = Progress{Paused: true}
	}
	snap.Progress = progress

	if s.artwork != nil {
		result := s.artwork.Run(ctx, ArtworkItem(item), snap.SessionID)
		if result != nil {
			snap.Artwork = result
			snap.Art, snap.Fanart = s.mediaURLs(result)
		}
	}

	log.Info().
		Str("session", snap.SessionID).
		Str("type", item.Type).
		Str("title", item.Title).
		Int("art", len(snap.Art)).
		Msg("Rendered now playing")
	return snap, nil
}

func (s *Service) mediaURLs(result *artwork.Result) (map[string]string, []string) {
	art := make(map[string]string, len(result.Slots))
	for slot, entry := range result.Slots {
		art[string(slot)] = MediaURL(entry.FileName)
	}
	fanart := make([]string, 0, len(result.Fanart))
	for _, entry := range result.Fanart {
		fanart = append(fanart, MediaURL(entry.FileName))
	}
	return art, fanart
}

// ArtworkItem converts a Kodi item into the artwork pipeline's input.
func ArtworkItem(item *kodi.Item) artwork.Item {
	kind := artwork.KindUnknown
	switch item.Type {
	case "movie":
		kind = artwork.KindMovie
	case "episode":
		kind = artwork.KindEpisode
	case "song":
		kind = artwork.KindSong
	}
	return artwork.Item{
		Kind:      kind,
		File:      item.File,
		Art:       item.Art,
		Thumbnail: item.Thumbnail,
	}
}

// ItemID returns a stable identifier for the item: its library id when it
// has one, otherwise its title.
func ItemID(item *kodi.Item) string {
	switch item.Type {
	case "song", "episode", "movie":
		if item.ID != 0 {
			return fmt.Sprintf("%s_%d", item.Type, item.ID)
		}
	}
	title := item.Title
	if title == "" {
		title = "unknown"
	}
	return "other_" + title
}

// Poll reports whether something plays and detects item changes. The item is
// re-read at most once per check interval, or whenever state has no item yet.
// A detected change is reported once as item_changed_<unix>. The returned
// state must be passed to the next call.
func (s *Service) Poll(ctx context.Context, state PollState, now time.Time) (PollResult, PollState, error) {
	playerID, err := s.activePlayer(ctx)
	if errors.Is(err, kodi.ErrNoActivePlayer) {
		return PollResult{Playing: false}, PollState{}, nil
	}
	if err != nil {
		return PollResult{Playing: false, Error: true}, state, err
	}

	if state.LastItemID == "" || now.Sub(state.LastCheck) >= s.checkInterval {
		state.LastCheck = now

		item, err := s.remote.GetItem(ctx, playerID, pollProperties)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to check playing item")
		} else {
			id := ItemID(item)
			if state.LastItemID != "" && id != state.LastItemID {
				log.Debug().Str("from", state.LastItemID).Str("to", id).Msg("Item changed")
				state.LastItemID = id
				return PollResult{
					Playing:  true,
					ItemID:   fmt.Sprintf("item_changed_%d", now.Unix()),
					ItemType: ItemTypeChange,
				}, state, nil
			}
			state.LastItemID = id
		}
	}

	props, err := s.remote.GetProperties(ctx, playerID)
	if err != nil {
		return PollResult{Playing: false, Error: true}, state, fmt.Errorf("get properties: %w", err)
	}

	id := state.LastItemID
	if id == "" {
		id = unknownItemID
	}
	return PollResult{
		Playing:  true,
		Paused:   props.Speed == 0,
		ItemID:   id,
		ItemType: ItemTypeEpisode,
	}, state, nil
}
