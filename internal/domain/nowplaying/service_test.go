package nowplaying_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/nowplaying"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
)

// MockRemote implements nowplaying.Remote with canned answers.
type MockRemote struct {
	players    []kodi.ActivePlayer
	playersErr error
	item       *kodi.Item
	itemErr    error
	props      *kodi.PlayerProperties
	propsErr   error
	details    map[string]kodi.Details
	detailsErr error

	itemCalls int
	calls     []string
}

func (m *MockRemote) GetActivePlayers(ctx context.Context) ([]kodi.ActivePlayer, error) {
	return m.players, m.playersErr
}

func (m *MockRemote) GetItem(ctx context.Context, playerID int, properties []string) (*kodi.Item, error) {
	m.itemCalls++
	return m.item, m.itemErr
}

func (m *MockRemote) GetProperties(ctx context.Context, playerID int) (*kodi.PlayerProperties, error) {
	return m.props, m.propsErr
}

func (m *MockRemote) lookup(method string) (kodi.Details, error) {
	m.calls = append(m.calls, method)
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	return m.details[method], nil
}

func (m *MockRemote) GetEpisodeDetails(ctx context.Context, id int) (kodi.Details, error) {
	return m.lookup("episode")
}

func (m *MockRemote) GetMovieDetails(ctx context.Context, id int) (kodi.Details, error) {
	return m.lookup("movie")
}

func (m *MockRemote) GetSongDetails(ctx context.Context, id int) (kodi.Details, error) {
	return m.lookup("song")
}

func (m *MockRemote) GetAlbumDetails(ctx context.Context, id int) (kodi.Details, error) {
	return m.lookup("album")
}

func (m *MockRemote) GetArtistDetails(ctx context.Context, id int) (kodi.Details, error) {
	return m.lookup("artist")
}

// MockArtwork records pipeline runs.
type MockArtwork struct {
	items    []artwork.Item
	sessions []string
	extra    []string // additional fanart keys
}

func (m *MockArtwork) Run(ctx context.Context, item artwork.Item, sessionID string) *artwork.Result {
	m.items = append(m.items, item)
	m.sessions = append(m.sessions, sessionID)
	result := &artwork.Result{
		SessionID: sessionID,
		Slots: map[artwork.SlotKind]artwork.CacheEntry{
			artwork.SlotPoster: {Key: "poster", FileName: sessionID + "_poster.jpg"},
			artwork.SlotFanart: {Key: "fanart", FileName: sessionID + "_fanart.jpg"},
		},
		Fanart: []artwork.CacheEntry{
			{Key: "fanart", FileName: sessionID + "_fanart.jpg"},
			{Key: "fanart1", FileName: sessionID + "_fanart1.jpg"},
		},
	}
	for _, key := range m.extra {
		result.Fanart = append(result.Fanart, artwork.CacheEntry{Key: key, FileName: artwork.FileName(sessionID, key)})
	}
	return result
}

func playing(item *kodi.Item, speed int) *MockRemote {
	return &MockRemote{
		players: []kodi.ActivePlayer{{PlayerID: 1, Type: "video"}},
		item:    item,
		props: &kodi.PlayerProperties{
			Time:      kodi.Time{Minutes: 1, Seconds: 30},
			TotalTime: kodi.Time{Minutes: 6},
			Speed:     speed,
		},
	}
}

func TestItemID(t *testing.T) {
	tests := []struct {
		item kodi.Item
		want string
	}{
		{kodi.Item{Type: "song", ID: 7}, "song_7"},
		{kodi.Item{Type: "episode", ID: 12}, "episode_12"},
		{kodi.Item{Type: "movie", ID: 3}, "movie_3"},
		{kodi.Item{Type: "movie", Title: "Trailer"}, "other_Trailer"},
		{kodi.Item{Type: "unknown", ID: 9, Title: "Stream"}, "other_Stream"},
		{kodi.Item{}, "other_unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := nowplaying.ItemID(&tt.item); got != tt.want {
				t.Errorf("ItemID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestService_Progress(t *testing.T) {
	remote := playing(&kodi.Item{}, 0)
	svc := nowplaying.NewService(remote, nil)

	got, err := svc.Progress(context.Background(), 1)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	want := nowplaying.Progress{Elapsed: 90, Duration: 360, Paused: true, Percent: 25}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Progress mismatch (-want +got):\n%s", diff)
	}
}

func TestService_CurrentProgressWithoutPlayer(t *testing.T) {
	svc := nowplaying.NewService(&MockRemote{}, nil)

	got, err := svc.CurrentProgress(context.Background())
	if err != nil {
		t.Fatalf("CurrentProgress failed: %v", err)
	}
	if diff := cmp.Diff(nowplaying.Progress{Paused: true}, got); diff != "" {
		t.Errorf("Progress mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Poll(t *testing.T) {
	remote := playing(&kodi.Item{Type: "episode", ID: 1}, 1)
	svc := nowplaying.NewService(remote, nil)
	ctx := context.Background()
	start := time.Unix(1700000000, 0)

	// First poll learns the item.
	res, state, err := svc.Poll(ctx, nowplaying.PollState{}, start)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	want := nowplaying.PollResult{Playing: true, Paused: false, ItemID: "episode_1", ItemType: "episode"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("first poll mismatch (-want +got):\n%s", diff)
	}

	// Within the check interval the item is not re-read.
	remote.item = &kodi.Item{Type: "episode", ID: 2}
	res, state, err = svc.Poll(ctx, state, start.Add(5*time.Second))
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if res.ItemID != "episode_1" || remote.itemCalls != 1 {
		t.Errorf("item re-read inside interval: %+v, calls %d", res, remote.itemCalls)
	}

	// After the interval the change is reported once.
	changeAt := start.Add(11 * time.Second)
	res, state, err = svc.Poll(ctx, state, changeAt)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	want = nowplaying.PollResult{Playing: true, ItemID: "item_changed_1700000011", ItemType: "item_change"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("change poll mismatch (-want +got):\n%s", diff)
	}
	if !res.Changed() {
		t.Error("Changed() = false")
	}

	res, state, err = svc.Poll(ctx, state, changeAt.Add(time.Second))
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if res.ItemID != "episode_2" || res.Changed() {
		t.Errorf("change reported twice: %+v", res)
	}

	// Playback stops: state resets.
	remote.players = nil
	res, state, err = svc.Poll(ctx, state, changeAt.Add(2*time.Second))
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if res.Playing || state != (nowplaying.PollState{}) {
		t.Errorf("stopped poll = %+v, state %+v", res, state)
	}
}

func TestService_PollUnknownItem(t *testing.T) {
	remote := playing(nil, 0)
	remote.itemErr = errors.New("boom")
	svc := nowplaying.NewService(remote, nil)

	res, _, err := svc.Poll(context.Background(), nowplaying.PollState{}, time.Now())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	want := nowplaying.PollResult{Playing: true, Paused: true, ItemID: "episode_unknown", ItemType: "episode"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("poll mismatch (-want +got):\n%s", diff)
	}
}

func TestService_PollError(t *testing.T) {
	remote := &MockRemote{playersErr: errors.New("connection refused")}
	svc := nowplaying.NewService(remote, nil)
	state := nowplaying.PollState{LastItemID: "movie_1"}

	res, got, err := svc.Poll(context.Background(), state, time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Playing || !res.Error {
		t.Errorf("result = %+v", res)
	}
	if got != state {
		t.Errorf("state changed on error: %+v", got)
	}
}

func TestService_Render(t *testing.T) {
	item := &kodi.Item{
		Type:      "episode",
		ID:        42,
		Title:     "Pilot",
		ShowTitle: "Show",
		Season:    1,
		Episode:   1,
		File:      "nfs://nas/TV/Show/S01E01.mkv",
		Art:       map[string]string{"tvshow.poster": "image://p/"},
	}
	remote := playing(item, 1)
	remote.details = map[string]kodi.Details{
		"episode": {"genre": []any{"Drama"}, "title": "library title"},
	}
	art := &MockArtwork{}
	svc := nowplaying.NewService(remote, art)

	snap, err := svc.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !snap.Playing || snap.Type != "episode" || len(snap.SessionID) != 32 {
		t.Errorf("snapshot header = %+v", snap)
	}
	if snap.Details["title"] != "Pilot" {
		t.Errorf("basic title not preserved: %v", snap.Details["title"])
	}
	if diff := cmp.Diff([]any{"Drama"}, snap.Details["genre"]); diff != "" {
		t.Errorf("genre mismatch (-want +got):\n%s", diff)
	}
	if snap.Progress.Percent != 25 || snap.Progress.Paused {
		t.Errorf("progress = %+v", snap.Progress)
	}

	if len(art.items) != 1 {
		t.Fatalf("artwork ran %d times", len(art.items))
	}
	wantItem := artwork.Item{Kind: artwork.KindEpisode, File: item.File, Art: item.Art}
	if diff := cmp.Diff(wantItem, art.items[0]); diff != "" {
		t.Errorf("artwork item mismatch (-want +got):\n%s", diff)
	}
	if art.sessions[0] != snap.SessionID {
		t.Errorf("artwork session = %q, want %q", art.sessions[0], snap.SessionID)
	}

	wantArt := map[string]string{
		"poster": "/media/" + snap.SessionID + "_poster.jpg",
		"fanart": "/media/" + snap.SessionID + "_fanart.jpg",
	}
	if diff := cmp.Diff(wantArt, snap.Art); diff != "" {
		t.Errorf("art mismatch (-want +got):\n%s", diff)
	}
	wantFanart := []string{
		"/media/" + snap.SessionID + "_fanart.jpg",
		"/media/" + snap.SessionID + "_fanart1.jpg",
	}
	if diff := cmp.Diff(wantFanart, snap.Fanart); diff != "" {
		t.Errorf("fanart mismatch (-want +got):\n%s", diff)
	}
}

func TestService_RenderEscapesMediaURLs(t *testing.T) {
	art := &MockArtwork{extra: []string{"extrafanart_a b#c?d"}}
	svc := nowplaying.NewService(playing(&kodi.Item{Type: "movie", ID: 1}, 1), art)

	snap, err := svc.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "/media/" + snap.SessionID + "_extrafanart_a%20b%23c%3Fd.jpg"
	if got := snap.Fanart[len(snap.Fanart)-1]; got != want {
		t.Errorf("fanart url = %q, want %q", got, want)
	}
}

func TestMediaURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"abc_poster.jpg", "/media/abc_poster.jpg"},
		{"abc_extrafanart_x#1.jpg", "/media/abc_extrafanart_x%231.jpg"},
		{"abc_extrafanart_a b.jpg", "/media/abc_extrafanart_a%20b.jpg"},
		{"abc_extrafanart_q?.jpg", "/media/abc_extrafanart_q%3F.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nowplaying.MediaURL(tt.name); got != tt.want {
				t.Errorf("MediaURL(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestService_RenderNewSessionEachTime(t *testing.T) {
	svc := nowplaying.NewService(playing(&kodi.Item{Type: "movie", ID: 1}, 1), &MockArtwork{})

	a, err := svc.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b, err := svc.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if a.SessionID == b.SessionID {
		t.Error("session id reused across renders")
	}
}

func TestService_RenderNothingPlaying(t *testing.T) {
	art := &MockArtwork{}
	svc := nowplaying.NewService(&MockRemote{}, art)

	snap, err := svc.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if snap.Playing || snap.SessionID != "" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(art.items) != 0 {
		t.Error("artwork ran without an active player")
	}
}

func TestService_RenderItemError(t *testing.T) {
	remote := playing(nil, 1)
	remote.itemErr = errors.New("boom")
	svc := nowplaying.NewService(remote, nil)

	if _, err := svc.Render(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_DetailsSong(t *testing.T) {
	item := &kodi.Item{Type: "song", ID: 5, Title: "Track", Album: "LP", Artist: []string{"A", "B"}, Year: 1999}
	remote := playing(item, 1)
	remote.details = map[string]kodi.Details{
		"song":   {"albumid": float64(8), "artistid": []any{float64(3), float64(4)}, "title": "other"},
		"album":  {"title": "LP (Deluxe)"},
		"artist": {"label": "A"},
	}
	svc := nowplaying.NewService(remote, nil)

	got := svc.Details(context.Background(), item)

	if diff := cmp.Diff([]string{"song", "album", "artist"}, remote.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(kodi.Details{"title": "LP (Deluxe)"}, got["album"]); diff != "" {
		t.Errorf("album mismatch (-want +got):\n%s", diff)
	}
	if got["title"] != "Track" || got["year"] != 1999 {
		t.Errorf("basic fields not preserved: %v %v", got["title"], got["year"])
	}
}

func TestService_DetailsFallback(t *testing.T) {
	item := &kodi.Item{Type: "movie", ID: 5, Album: "", Artist: nil, Year: 2001}
	remote := playing(item, 1)
	remote.detailsErr = errors.New("library unavailable")
	svc := nowplaying.NewService(remote, nil)

	got := svc.Details(context.Background(), item)

	want := kodi.Details{
		"album":  map[string]any{"title": "", "year": 2001},
		"artist": map[string]any{"label": "Unknown Artist"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
}

func TestService_DetailsCast(t *testing.T) {
	itemCast := []map[string]any{{"name": "Lead", "role": "Hero", "order": float64(0)}}
	libraryCast := []any{map[string]any{"name": "Library", "role": "Extra"}}

	tests := []struct {
		name string
		item *kodi.Item
		want any
	}{
		{"episode item cast wins", &kodi.Item{Type: "episode", ID: 1, Cast: itemCast}, itemCast},
		{"movie item cast wins", &kodi.Item{Type: "movie", ID: 1, Cast: itemCast}, itemCast},
		{"library cast without item cast", &kodi.Item{Type: "movie", ID: 1}, libraryCast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := playing(tt.item, 1)
			remote.details = map[string]kodi.Details{
				"episode": {"cast": libraryCast},
				"movie":   {"cast": libraryCast},
			}
			svc := nowplaying.NewService(remote, nil)

			got := svc.Details(context.Background(), tt.item)

			if diff := cmp.Diff(tt.want, got["cast"]); diff != "" {
				t.Errorf("cast mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
