package nowplaying

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
)

// Details returns the library details of item merged over its basic fields.
// Library lookups that fail leave the basic fields in place.
func (s *Service) Details(ctx context.Context, item *kodi.Item) kodi.Details {
	details := kodi.Details{
		"album":  map[string]any{"title": item.Album, "year": item.Year},
		"artist": map[string]any{"label": item.ArtistLabel()},
	}

	switch item.Type {
	case "episode":
		extra, err := s.remote.GetEpisodeDetails(ctx, item.ID)
		if err != nil {
			log.Warn().Err(err).Int("id", item.ID).Msg("Failed to get episode details")
			return details
		}
		merge(details, extra)
		merge(details, kodi.Details{
			"title":     item.Title,
			"plot":      item.Plot,
			"season":    item.Season,
			"episode":   item.Episode,
			"showtitle": item.ShowTitle,
			"director":  item.Director,
			"year":      item.Year,
		})
		mergeCast(details, item)

	case "movie":
		extra, err := s.remote.GetMovieDetails(ctx, item.ID)
		if err != nil {
			log.Warn().Err(err).Int("id", item.ID).Msg("Failed to get movie details")
			return details
		}
		merge(details, extra)
		merge(details, kodi.Details{
			"title":    item.Title,
			"plot":     item.Plot,
			"director": item.Director,
			"year":     item.Year,
		})
		mergeCast(details, item)

	case "song":
		s.songDetails(ctx, item, details)
	}

	return details
}

func (s *Service) songDetails(ctx context.Context, item *kodi.Item, details kodi.Details) {
	song, err := s.remote.GetSongDetails(ctx, item.ID)
	if err != nil {
		log.Warn().Err(err).Int("id", item.ID).Msg("Failed to get song details")
		return
	}
	merge(details, song)

	if albumID := firstID(song["albumid"]); albumID > 0 {
		album, err := s.remote.GetAlbumDetails(ctx, albumID)
		if err != nil {
			log.Warn().Err(err).Int("id", albumID).Msg("Failed to get album details")
		} else {
			details["album"] = album
		}
	}

	if artistID := firstID(song["artistid"]); artistID > 0 {
		artist, err := s.remote.GetArtistDetails(ctx, artistID)
		if err != nil {
			log.Warn().Err(err).Int("id", artistID).Msg("Failed to get artist details")
		} else {
			details["artist"] = artist
		}
	}

	details["title"] = item.Title
	details["year"] = item.Year
}

// mergeCast prefers the cast reported by the player over the library's.
func mergeCast(details kodi.Details, item *kodi.Item) {
	if len(item.Cast) > 0 {
		details["cast"] = item.Cast
	}
}

func merge(dst, src kodi.Details) {
	for k, v := range src {
		dst[k] = v
	}
}

// firstID reads a JSON library id, taking the first element of an id list.
func firstID(v any) int {
	switch id := v.(type) {
	case float64:
		return int(id)
	case int:
		return id
	case []any:
		if len(id) > 0 {
			return firstID(id[0])
		}
	}
	return 0
}
