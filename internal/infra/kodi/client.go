// Package kodi provides a JSON-RPC client for the Kodi remote control protocol.
package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every JSON-RPC round trip.
const DefaultTimeout = 8 * time.Second

// Client talks to Kodi's /jsonrpc endpoint.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	nextID     atomic.Int64
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithCredentials sets HTTP basic auth credentials.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a Kodi client for baseURL (e.g. http://192.168.0.10:8080).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the server base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Host returns the host[:port] of the server.
func (c *Client) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call invokes method with params and decodes the result into result (if non-nil).
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("kodi %s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("kodi %s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kodi %s: http request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Method: method, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kodi %s: read response: %w", method, err)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("kodi %s: parse response: %w", method, err)
	}

	if envelope.Error != nil {
		envelope.Error.Method = method
		return envelope.Error
	}

	log.Debug().Str("method", method).Int("bytes", len(data)).Msg("Kodi response")

	if result == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("kodi %s: parse result: %w", method, err)
	}
	return nil
}

// Ping checks that the JSON-RPC endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	var pong string
	if err := c.Call(ctx, "JSONRPC.Ping", nil, &pong); err != nil {
		return err
	}
	if pong != "pong" {
		return fmt.Errorf("kodi JSONRPC.Ping: unexpected reply %q", pong)
	}
	return nil
}

// GetActivePlayers lists the active players.
func (c *Client) GetActivePlayers(ctx context.Context) ([]ActivePlayer, error) {
	var players []ActivePlayer
	if err := c.Call(ctx, "Player.GetActivePlayers", nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// GetItem returns the item playing on playerID.
func (c *Client) GetItem(ctx context.Context, playerID int, properties []string) (*Item, error) {
	var result struct {
		Item *Item `json:"item"`
	}
	params := map[string]any{"playerid": playerID, "properties": properties}
	if err := c.Call(ctx, "Player.GetItem", params, &result); err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, fmt.Errorf("kodi Player.GetItem: response has no item")
	}
	return result.Item, nil
}

// GetProperties returns the playback progress of playerID.
func (c *Client) GetProperties(ctx context.Context, playerID int) (*PlayerProperties, error) {
	var props PlayerProperties
	params := map[string]any{
		"playerid":   playerID,
		"properties": []string{"time", "totaltime", "speed"},
	}
	if err := c.Call(ctx, "Player.GetProperties", params, &props); err != nil {
		return nil, err
	}
	return &props, nil
}

var (
	videoDetailProperties = []string{"streamdetails", "genre", "director", "cast", "uniqueid", "rating"}
	songDetailProperties  = []string{
		"title", "album", "artist", "duration", "rating", "year", "genre", "fanart",
		"thumbnail", "albumid", "artistid", "bitrate", "channels", "samplerate", "bpm",
		"comment", "lyrics", "mood", "playcount", "track", "disc",
	}
	albumDetailProperties = []string{
		"title", "artist", "year", "rating", "fanart", "thumbnail", "description", "genre",
		"mood", "style", "theme", "albumduration", "playcount", "albumlabel", "compilation", "totaldiscs",
	}
	artistDetailProperties = []string{
		"fanart", "thumbnail", "description", "born", "formed", "died", "disbanded",
		"genre", "mood", "style", "yearsactive",
	}
)

func (c *Client) details(ctx context.Context, method, idField string, id int, properties []string, resultField string) (Details, error) {
	var result map[string]json.RawMessage
	params := map[string]any{idField: id, "properties": properties}
	if err := c.Call(ctx, method, params, &result); err != nil {
		return nil, err
	}
	raw, ok := result[resultField]
	if !ok {
		return nil, fmt.Errorf("kodi %s: response has no %s", method, resultField)
	}
	var details Details
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("kodi %s: parse %s: %w", method, resultField, err)
	}
	return details, nil
}

// GetEpisodeDetails calls VideoLibrary.GetEpisodeDetails.
func (c *Client) GetEpisodeDetails(ctx context.Context, episodeID int) (Details, error) {
	return c.details(ctx, "VideoLibrary.GetEpisodeDetails", "episodeid", episodeID, videoDetailProperties, "episodedetails")
}

// GetMovieDetails calls VideoLibrary.GetMovieDetails.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int) (Details, error) {
	return c.details(ctx, "VideoLibrary.GetMovieDetails", "movieid", movieID, videoDetailProperties, "moviedetails")
}

// GetSongDetails calls AudioLibrary.GetSongDetails.
func (c *Client) GetSongDetails(ctx context.Context, songID int) (Details, error) {
	return c.details(ctx, "AudioLibrary.GetSongDetails", "songid", songID, songDetailProperties, "songdetails")
}

// GetAlbumDetails calls AudioLibrary.GetAlbumDetails.
func (c *Client) GetAlbumDetails(ctx context.Context, albumID int) (Details, error) {
	return c.details(ctx, "AudioLibrary.GetAlbumDetails", "albumid", albumID, albumDetailProperties, "albumdetails")
}

// GetArtistDetails calls AudioLibrary.GetArtistDetails.
func (c *Client) GetArtistDetails(ctx context.Context, artistID int) (Details, error) {
	return c.details(ctx, "AudioLibrary.GetArtistDetails", "artistid", artistID, artistDetailProperties, "artistdetails")
}

// PrepareDownload asks Kodi to expose path for download.
func (c *Client) PrepareDownload(ctx context.Context, path string) (*DownloadDetails, error) {
	var result struct {
		Details *DownloadDetails `json:"details"`
	}
	if err := c.Call(ctx, "Files.PrepareDownload", map[string]any{"path": path}, &result); err != nil {
		return nil, err
	}
	if result.Details == nil {
		return &DownloadDetails{}, nil
	}
	return result.Details, nil
}

// GetDirectory lists the immediate children of dir.
func (c *Client) GetDirectory(ctx context.Context, dir string) ([]FileEntry, error) {
	var result struct {
		Files []FileEntry `json:"files"`
	}
	params := map[string]any{"directory": dir, "properties": []string{"file"}}
	if err := c.Call(ctx, "Files.GetDirectory", params, &result); err != nil {
		return nil, err
	}
	return result.Files, nil
}
