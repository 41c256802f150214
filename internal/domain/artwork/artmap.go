package artwork

import (
	"strings"
)

const (
	showScope        = "tvshow."
	albumScope       = "album."
	artistScope      = "artist."
	albumArtistScope = "albumartist."
)

// musicScopes are applied in this order; a later scope wins on collision.
var musicScopes = []string{albumScope, artistScope, albumArtistScope}

// Normalize merges the scoped keys of raw into one flat map. The base map is
// overlaid by tvshow.* keys, which are overlaid by album.*, artist.* and
// albumartist.* keys (prefix stripped). thumbnail is installed as poster when
// no poster exists.
func Normalize(raw map[string]string, thumbnail string) ArtMap {
	art := make(ArtMap, len(raw)+1)
	for k, v := range raw {
		art[k] = Reference(v)
	}

	if thumbnail != "" && art[string(SlotPoster)] == "" {
		art[string(SlotPoster)] = Reference(thumbnail)
	}

	show := make(ArtMap)
	music := make(ArtMap)
	for _, k := range art.Keys() {
		if name, ok := strings.CutPrefix(k, showScope); ok && name != "" {
			show[name] = art[k]
		}
	}
	for _, scope := range musicScopes {
		for _, k := range art.Keys() {
			name, ok := strings.CutPrefix(k, scope)
			if !ok || name == "" {
				continue
			}
			if scope == albumScope && name == "thumb" {
				name = string(SlotThumbnail)
			}
			music[name] = art[k]
		}
	}

	for k, v := range show {
		art[k] = v
	}
	for k, v := range music {
		art[k] = v
	}
	return art
}
