package artwork

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds the settings needed to assemble a pipeline.
type Config struct {
	// BaseURL is the Kodi web server root, e.g. http://kodi.local:8080.
	BaseURL string
	// RemoteHost receives the credentials; usually the BaseURL host.
	RemoteHost string
	Username   string
	Password   string

	CacheDir      string
	RemoteSchemes []string
	FetchTimeout  time.Duration
	ProbeTimeout  time.Duration
}

// Result is the outcome of one pipeline run.
type Result struct {
	SessionID string                  `json:"sessionId"`
	Slots     map[SlotKind]CacheEntry `json:"slots"`
	Fanart    []CacheEntry            `json:"fanart"`
	Failures  map[string]string       `json:"failures,omitempty"`
}

// Files maps each downloaded key to its local file name.
func (r *Result) Files() map[string]string {
	files := make(map[string]string, len(r.Slots)+len(r.Fanart))
	for slot, entry := range r.Slots {
		files[string(slot)] = entry.FileName
	}
	for _, entry := range r.Fanart {
		files[entry.Key] = entry.FileName
	}
	return files
}

// Pipeline normalizes, resolves and downloads the artwork of one item.
type Pipeline struct {
	resolver   *Resolver
	fetcher    *Fetcher
	discoverer *Discoverer
}

// NewPipeline assembles the resolver, fetcher and discoverer around remote.
func NewPipeline(remote RemoteFiles, cache *SessionCache, cfg Config) *Pipeline {
	opts := []FetcherOption{WithRemoteAuth(cfg.RemoteHost, cfg.Username, cfg.Password)}
	if cfg.FetchTimeout > 0 {
		opts = append(opts, WithFetchTimeout(cfg.FetchTimeout))
	}
	if cfg.ProbeTimeout > 0 {
		opts = append(opts, WithProbeTimeout(cfg.ProbeTimeout))
	}

	resolver := NewResolver(remote, cfg.BaseURL, cfg.RemoteSchemes)
	fetcher := NewFetcher(cfg.CacheDir, cache, opts...)
	return &Pipeline{
		resolver:   resolver,
		fetcher:    fetcher,
		discoverer: NewDiscoverer(remote, resolver, fetcher, cfg.RemoteSchemes),
	}
}

// Run downloads every slot and fanart variant of item for the session. Slots
// are processed one at a time; a failing slot is recorded in Failures and
// never stops the others.
func (p *Pipeline) Run(ctx context.Context, item Item, sessionID string) *Result {
	result := &Result{
		SessionID: sessionID,
		Slots:     make(map[SlotKind]CacheEntry),
		Failures:  make(map[string]string),
	}

	art := Normalize(item.Art, item.Thumbnail)
	log.Debug().
		Str("session", sessionID).
		Str("kind", string(item.Kind)).
		Strs("keys", art.Keys()).
		Msg("Normalized art map")

	variants := p.discoverer.Discover(ctx, art, item.File, item.Kind)

	for _, slot := range SingleSlots {
		ref, ok := art.Get(slot)
		if !ok {
			continue
		}
		entry, err := p.fetchSlot(ctx, sessionID, slot, ref, item.File)
		if err != nil {
			log.Debug().Err(err).Str("slot", string(slot)).Msg("Artwork slot failed")
			result.Failures[string(slot)] = err.Error()
			continue
		}
		result.Slots[slot] = entry
	}

	if main, ok := result.Slots[SlotFanart]; ok {
		result.Fanart = append(result.Fanart, main)
	}
	for _, v := range variants {
		if v.Key == string(SlotFanart) {
			continue
		}
		entry, err := p.fetchVariant(ctx, sessionID, v, item.File)
		if err != nil {
			log.Debug().Err(err).Str("variant", v.Key).Msg("Fanart variant failed")
			result.Failures[v.Key] = err.Error()
			continue
		}
		result.Fanart = append(result.Fanart, entry)
	}

	log.Info().
		Str("session", sessionID).
		Int("slots", len(result.Slots)).
		Int("fanart", len(result.Fanart)).
		Int("failures", len(result.Failures)).
		Msg("Artwork pipeline finished")
	return result
}

// fetchSlot resolves and downloads one slot. A 401 on a slot with ancestor
// fallback retries the download against each ancestor candidate.
func (p *Pipeline) fetchSlot(ctx context.Context, sessionID string, slot SlotKind, ref Reference, file string) (CacheEntry, error) {
	req := Request{Reference: ref, FileLocation: file, Slot: slot}
	key := string(slot)

	addr, err := p.resolver.Resolve(ctx, req)
	if err != nil {
		return CacheEntry{}, err
	}

	entry, err := p.fetcher.Fetch(ctx, addr, sessionID, key)
	if err == nil {
		return entry, nil
	}
	if !IsUnauthorized(err) || !slot.HasAncestorFallback() {
		return CacheEntry{}, err
	}

	log.Debug().Str("slot", key).Msg("Artwork fetch unauthorized, trying ancestor candidates")
	_, retryErr := p.resolver.Retry(ctx, req, func(candidate ResolvedAddress) error {
		var fetchErr error
		entry, fetchErr = p.fetcher.Fetch(ctx, candidate, sessionID, key)
		return fetchErr
	})
	if retryErr != nil {
		return CacheEntry{}, fmt.Errorf("%w; retry: %w", err, retryErr)
	}
	return entry, nil
}

func (p *Pipeline) fetchVariant(ctx context.Context, sessionID string, v FanartVariant, file string) (CacheEntry, error) {
	addr, err := p.resolver.Resolve(ctx, Request{Reference: v.Reference, FileLocation: file})
	if err != nil {
		return CacheEntry{}, err
	}
	return p.fetcher.Fetch(ctx, addr, sessionID, v.Key)
}
