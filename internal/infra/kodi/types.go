package kodi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoActivePlayer is returned when Kodi reports no active player.
var ErrNoActivePlayer = errors.New("no active player")

// RPCError is a JSON-RPC error object returned by Kodi.
type RPCError struct {
	Method  string `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kodi %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

// HTTPError is returned when the JSON-RPC endpoint answers with a non-2xx status.
type HTTPError struct {
	Method     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("kodi %s: http status %d", e.Method, e.StatusCode)
}

// ActivePlayer is one entry of Player.GetActivePlayers.
type ActivePlayer struct {
	PlayerID int    `json:"playerid"`
	Type     string `json:"type"`
}

// Item is the currently playing item as returned by Player.GetItem.
type Item struct {
	ID        int               `json:"id"`
	Type      string            `json:"type"`
	Label     string            `json:"label"`
	Title     string            `json:"title"`
	File      string            `json:"file"`
	Thumbnail string            `json:"thumbnail"`
	Art       map[string]string `json:"art"`
	ShowTitle string            `json:"showtitle"`
	TVShowID  int               `json:"tvshowid"`
	Season    int               `json:"season"`
	Episode   int               `json:"episode"`
	Album     string            `json:"album"`
	Artist    []string          `json:"artist"`
	Director  []string          `json:"director"`
	Genre     []string          `json:"genre"`
	Plot      string            `json:"plot"`
	Year      int               `json:"year"`
	Rating    float64           `json:"rating"`
	Duration  int               `json:"duration"`
	Cast      []map[string]any  `json:"cast,omitempty"`
}

// ArtistLabel joins the item's artists for display.
func (i *Item) ArtistLabel() string {
	if len(i.Artist) == 0 {
		return "Unknown Artist"
	}
	return strings.Join(i.Artist, ", ")
}

// ItemProperties are the Player.GetItem properties requested for a render.
var ItemProperties = []string{
	"title", "album", "artist", "season", "episode", "showtitle",
	"tvshowid", "duration", "file", "director", "art", "plot",
	"cast", "resume", "genre", "rating", "streamdetails", "year",
	"thumbnail",
}

// Time is Kodi's split duration value.
type Time struct {
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	Milliseconds int `json:"milliseconds"`
}

// TotalSeconds returns the duration in whole seconds.
func (t Time) TotalSeconds() int {
	return t.Hours*3600 + t.Minutes*60 + t.Seconds
}

// PlayerProperties is the subset of Player.GetProperties used for progress.
type PlayerProperties struct {
	Time      Time `json:"time"`
	TotalTime Time `json:"totaltime"`
	Speed     int  `json:"speed"`
}

// DownloadDetails is the details object of Files.PrepareDownload.
// Kodi answers with either a short-lived token or a server-relative path.
type DownloadDetails struct {
	Token string `json:"token"`
	Path  string `json:"path"`
}

// FileEntry is one child returned by Files.GetDirectory.
type FileEntry struct {
	File     string `json:"file"`
	FileType string `json:"filetype"` // "file" or "directory"
	Label    string `json:"label"`
}

// IsDir reports whether the entry is a directory.
func (f FileEntry) IsDir() bool {
	return f.FileType == "directory"
}

// Details is an opaque library details object (episode, movie, song, album, artist).
type Details map[string]any
