// Package httpapi exposes the now-playing service over plain HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/nowplaying"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/version"
)

// Service is the now-playing behaviour the handlers need.
type Service interface {
	Render(ctx context.Context) (*nowplaying.Snapshot, error)
	CurrentProgress(ctx context.Context) (nowplaying.Progress, error)
	Poll(ctx context.Context, state nowplaying.PollState, now time.Time) (nowplaying.PollResult, nowplaying.PollState, error)
}

// Pinger checks the Kodi connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Media finds downloaded artwork by file name.
type Media interface {
	Lookup(fileName string) (artwork.CacheEntry, bool)
}

// Handler serves the HTTP API.
type Handler struct {
	svc    Service
	pinger Pinger
	media  Media
	now    func() time.Time

	mu   sync.Mutex
	poll nowplaying.PollState
}

// New creates the handler. Only files recorded in media are served.
func New(svc Service, pinger Pinger, media Media) *Handler {
	return &Handler{
		svc:    svc,
		pinger: pinger,
		media:  media,
		now:    time.Now,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/nowplaying", h.handleNowPlaying)
	mux.HandleFunc("GET /api/v1/progress", h.handleProgress)
	mux.HandleFunc("GET /poll_playback", h.handlePoll)
	mux.HandleFunc("GET /media/{filename}", h.handleMedia)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/v1/version", h.handleVersion)
}

func (h *Handler) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Render(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to render now playing")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.svc.CurrentProgress(r.Context())
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read progress")
		writeJSON(w, http.StatusOK, nowplaying.Progress{Paused: true})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handlePoll keeps one poll state for all HTTP pollers.
func (h *Handler) handlePoll(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	result, state, err := h.svc.Poll(r.Context(), h.poll, h.now())
	h.poll = state
	if err != nil {
		log.Error().Err(err).Msg("Poll playback failed")
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}

	entry, ok := h.media.Lookup(name)
	if !ok {
		http.Error(w, "artwork not found", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(entry.Path)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "artwork not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("Failed to read artwork")
		http.Error(w, "artwork unavailable", http.StatusInternalServerError)
		return
	}

	contentType := artwork.DetectMimeType(data)
	if contentType == "application/octet-stream" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "kodi": "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "kodi": "connected"})
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to encode response")
	}
}
