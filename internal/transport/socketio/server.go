// Package socketio pushes now-playing updates to connected displays.
package socketio

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mhmtszr/concurrent-swiss-map"
	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/nowplaying"
)

// Event names emitted to clients.
const (
	EventPushNowPlaying = "pushNowPlaying"
	EventPushProgress   = "pushProgress"
)

// DefaultDebounceWindow is how long the watcher waits for changes to settle.
const DefaultDebounceWindow = 500 * time.Millisecond

// Service is the now-playing behaviour the server needs.
type Service interface {
	Render(ctx context.Context) (*nowplaying.Snapshot, error)
	CurrentProgress(ctx context.Context) (nowplaying.Progress, error)
	Poll(ctx context.Context, state nowplaying.PollState, now time.Time) (nowplaying.PollResult, nowplaying.PollState, error)
}

// Sessions is the artwork cache behind the rendered snapshots.
type Sessions interface {
	Session(sessionID string) []artwork.CacheEntry
	DeleteSession(sessionID string) int
	DeleteExpired()
}

// Option configures a Server.
type Option func(*Server)

// WithDebounceWindow sets the debounce window for watcher broadcasts.
func WithDebounceWindow(d time.Duration) Option {
	return func(s *Server) {
		s.window = d
	}
}

// WithRenderTimeout bounds each render triggered by a broadcast.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.renderTimeout = d
	}
}

// WithSessions ties the artwork cache to the snapshot lifecycle: a superseded
// session is deleted, and a snapshot whose files expired is rendered again.
func WithSessions(c Sessions) Option {
	return func(s *Server) {
		s.sessions = c
	}
}

// Server handles Socket.io connections and events.
type Server struct {
	io            *socket.Server
	svc           Service
	debouncer     *BroadcastDebouncer
	window        time.Duration
	renderTimeout time.Duration
	sessions      Sessions

	clients *csmap.CsMap[string, *socket.Socket]

	mu     sync.RWMutex
	latest *nowplaying.Snapshot

	// render serializes renders so bursts never start parallel artwork runs.
	render sync.Mutex
}

// NewServer creates a new Socket.io server.
func NewServer(svc Service, opts ...Option) (*Server, error) {
	ioOpts := socket.DefaultServerOptions()
	ioOpts.SetPingTimeout(20 * time.Second)
	ioOpts.SetPingInterval(25 * time.Second)
	ioOpts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:            socket.NewServer(nil, ioOpts),
		svc:           svc,
		window:        DefaultDebounceWindow,
		renderTimeout: time.Minute,
		clients:       csmap.Create[string, *socket.Socket](),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.debouncer = NewBroadcastDebouncer(s.window,
		func() { s.BroadcastNowPlaying(context.Background()) },
		func() { s.BroadcastProgress(context.Background()) },
	)

	s.setupHandlers()

	return s, nil
}

func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		log.Info().Str("id", clientID).Msg("Display connected")

		s.clients.Store(clientID, client)

		go s.pushNowPlaying(client)

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Display disconnected")

			s.clients.Delete(clientID)
		})

		client.On("getNowPlaying", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getNowPlaying")
			go s.pushNowPlaying(client)
		})

		client.On("getProgress", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getProgress")
			go s.pushProgress(client)
		})
	})
}

func (s *Server) pushNowPlaying(client *socket.Socket) {
	snap, err := s.currentSnapshot(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to render now playing for display")
		return
	}
	client.Emit(EventPushNowPlaying, snap)
}

// currentSnapshot returns the last rendered snapshot, rendering a new one when
// there is none yet or its artwork files are gone.
func (s *Server) currentSnapshot(ctx context.Context) (*nowplaying.Snapshot, error) {
	if snap := s.Latest(); snap != nil && !s.stale(snap) {
		return snap, nil
	}
	return s.renderSnapshot(ctx)
}

// stale reports whether any artwork file of snap has left the cache.
func (s *Server) stale(snap *nowplaying.Snapshot) bool {
	if s.sessions == nil || snap == nil || snap.Artwork == nil {
		return false
	}
	want := snap.Artwork.Files()
	if len(want) == 0 {
		return false
	}

	s.sessions.DeleteExpired()
	have := make(map[string]bool, len(want))
	for _, entry := range s.sessions.Session(snap.SessionID) {
		have[entry.FileName] = true
	}
	for _, file := range want {
		if !have[file] {
			return true
		}
	}
	return false
}

func (s *Server) pushProgress(client *socket.Socket) {
	progress, err := s.svc.CurrentProgress(context.Background())
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read progress for display")
		progress = nowplaying.Progress{Paused: true}
	}
	client.Emit(EventPushProgress, progress)
}

func (s *Server) renderSnapshot(ctx context.Context) (*nowplaying.Snapshot, error) {
	s.render.Lock()
	defer s.render.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	snap, err := s.svc.Render(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.latest
	s.latest = snap
	s.mu.Unlock()

	if s.sessions != nil && prev != nil && prev.SessionID != "" && prev.SessionID != snap.SessionID {
		n := s.sessions.DeleteSession(prev.SessionID)
		log.Debug().Str("session", prev.SessionID).Int("files", n).Msg("Dropped superseded artwork session")
	}
	return snap, nil
}

// Latest returns the most recently rendered snapshot, or nil.
func (s *Server) Latest() *nowplaying.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// ClientCount returns the number of connected displays.
func (s *Server) ClientCount() int {
	return s.clients.Count()
}

// BroadcastNowPlaying renders a fresh snapshot and emits it to every display.
func (s *Server) BroadcastNowPlaying(ctx context.Context) {
	snap, err := s.renderSnapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render now playing for broadcast")
		return
	}
	log.Debug().Str("session", snap.SessionID).Bool("playing", snap.Playing).Msg("Broadcasting now playing")
	s.io.Emit(EventPushNowPlaying, snap)
}

// BroadcastProgress emits the current progress to every display.
func (s *Server) BroadcastProgress(ctx context.Context) {
	progress, err := s.svc.CurrentProgress(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read progress for broadcast")
		return
	}
	s.io.Emit(EventPushProgress, progress)
}

// StartWatcher polls playback every interval until ctx is done, broadcasting
// a new render when the item changes or the current artwork expired, and
// progress when playback flips.
func (s *Server) StartWatcher(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var w watchState
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				ev, ok := w.step(ctx, s.svc, now)
				if !ok && s.stale(s.Latest()) {
					ev, ok = EventItem, true
				}
				if ok {
					s.debouncer.Trigger(ev)
				}
			}
		}
	}()
}

type watchState struct {
	poll nowplaying.PollState
	last nowplaying.PollResult
}

// step runs one poll and reports which event, if any, it produced.
func (w *watchState) step(ctx context.Context, svc Service, now time.Time) (Event, bool) {
	result, next, err := svc.Poll(ctx, w.poll, now)
	w.poll = next
	if err != nil {
		log.Debug().Err(err).Msg("Playback watch poll failed")
		return 0, false
	}

	prev := w.last
	w.last = result

	switch {
	case result.Changed(), result.Playing != prev.Playing:
		return EventItem, true
	case result.Paused != prev.Paused:
		return EventPlayback, true
	}
	return 0, false
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close shuts down the server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
