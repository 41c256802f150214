// Package artwork resolves, downloads and caches the artwork of the playing item.
package artwork

import (
	"context"
	"errors"
	"sort"
	"time"
)

var (
	// ErrUnresolved is returned when no fetchable address could be produced.
	ErrUnresolved = errors.New("artwork address unresolved")

	// ErrNoReference is returned when a slot has no reference at all.
	ErrNoReference = errors.New("no artwork reference")

	// ErrEntryExists is returned when a session slot is cached twice.
	ErrEntryExists = errors.New("artwork already cached for session slot")

	// ErrTooLarge is returned when an image body exceeds MaxImageSize.
	ErrTooLarge = errors.New("artwork exceeds size limit")
)

// SlotKind names a single-image artwork role.
type SlotKind string

const (
	SlotPoster       SlotKind = "poster"
	SlotFanart       SlotKind = "fanart"
	SlotClearLogo    SlotKind = "clearlogo"
	SlotClearArt     SlotKind = "clearart"
	SlotDiscArt      SlotKind = "discart"
	SlotCDArt        SlotKind = "cdart"
	SlotBanner       SlotKind = "banner"
	SlotSeasonPoster SlotKind = "season.poster"
	SlotThumbnail    SlotKind = "thumbnail"
)

// SingleSlots is the allow-list of single-image slots, in processing order.
var SingleSlots = []SlotKind{
	SlotPoster,
	SlotFanart,
	SlotClearLogo,
	SlotClearArt,
	SlotDiscArt,
	SlotCDArt,
	SlotBanner,
	SlotSeasonPoster,
	SlotThumbnail,
}

// HasAncestorFallback reports whether the slot may be searched for in
// ancestor directories of the playing file.
func (k SlotKind) HasAncestorFallback() bool {
	switch k {
	case SlotFanart, SlotClearLogo, SlotClearArt, SlotBanner:
		return true
	}
	return false
}

// ItemKind is the Kodi media type of the playing item.
type ItemKind string

const (
	KindMovie   ItemKind = "movie"
	KindEpisode ItemKind = "episode"
	KindSong    ItemKind = "song"
	KindUnknown ItemKind = "unknown"
)

// Item is the subset of the playing item the pipeline works on.
type Item struct {
	Kind      ItemKind
	File      string
	Art       map[string]string
	Thumbnail string
}

// ArtMap maps slot names to references.
type ArtMap map[string]Reference

// Keys returns the slot names in lexical order.
func (m ArtMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the reference for a slot.
func (m ArtMap) Get(slot SlotKind) (Reference, bool) {
	ref, ok := m[string(slot)]
	return ref, ok && ref != ""
}

// FanartVariant is one background image for the slideshow.
type FanartVariant struct {
	Key       string
	Reference Reference
}

// AddressKind tells how an address was produced.
type AddressKind int

const (
	// AddressExternal is an http(s) URL taken verbatim from the reference.
	AddressExternal AddressKind = iota
	// AddressToken is a /vfs/<token>/<name> URL from a download token.
	AddressToken
	// AddressPath is a server-relative path returned by Kodi.
	AddressPath
)

func (k AddressKind) String() string {
	switch k {
	case AddressExternal:
		return "external"
	case AddressToken:
		return "token"
	case AddressPath:
		return "path"
	}
	return "unknown"
}

// ResolvedAddress is a fetchable URL. Token and Path are mutually exclusive
// and only set for the matching Kind.
type ResolvedAddress struct {
	Kind  AddressKind
	URL   string
	Token string
	Path  string
}

// CacheEntry is a downloaded artwork file for one session slot.
type CacheEntry struct {
	SessionID string    `json:"sessionId"`
	Key       string    `json:"key"`
	FileName  string    `json:"fileName"` // <sessionId>_<key>.jpg
	Path      string    `json:"-"`        // absolute path on disk
	FetchedAt time.Time `json:"fetchedAt"`
}

// DownloadDetails is the answer to a prepare-download request.
type DownloadDetails struct {
	Token string
	Path  string
}

// DirEntry is one child of a remote directory listing.
type DirEntry struct {
	File  string
	IsDir bool
}

// RemoteFiles is the part of the remote protocol the pipeline depends on.
type RemoteFiles interface {
	// PrepareDownload exposes a remote-internal path for download.
	PrepareDownload(ctx context.Context, path string) (DownloadDetails, error)
	// ListDirectory lists the immediate children of a directory location.
	ListDirectory(ctx context.Context, dir string) ([]DirEntry, error)
}
