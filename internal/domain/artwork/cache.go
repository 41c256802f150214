package artwork

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// DefaultSessionTTL is how long a session's files are kept after download.
const DefaultSessionTTL = 30 * time.Minute

const keySeparator = "|"

// SessionCache records which artwork files were downloaded for which session.
// Entries are written once; expiry or deletion removes the file from disk.
type SessionCache struct {
	items *gocache.Cache
	now   func() time.Time
}

// NewSessionCache creates a cache whose entries expire after ttl.
// A non-positive ttl keeps entries until they are deleted.
func NewSessionCache(ttl time.Duration) *SessionCache {
	expiration, cleanup := ttl, ttl/2
	if ttl <= 0 {
		expiration, cleanup = gocache.NoExpiration, 0
	} else if cleanup < time.Minute {
		cleanup = time.Minute
	}

	items := gocache.New(expiration, cleanup)
	items.OnEvicted(removeFile)

	return &SessionCache{items: items, now: time.Now}
}

func cacheKey(sessionID, key string) string {
	return sessionID + keySeparator + key
}

// FileName is the local file name for a session slot.
func FileName(sessionID, key string) string {
	return sessionID + "_" + key + ".jpg"
}

// Put records the downloaded file for a session slot. A second Put for the
// same slot fails with ErrEntryExists and leaves the first entry in place.
func (c *SessionCache) Put(sessionID, key, localFile string) (CacheEntry, error) {
	entry := CacheEntry{
		SessionID: sessionID,
		Key:       key,
		FileName:  filepath.Base(localFile),
		Path:      localFile,
		FetchedAt: c.now(),
	}
	if err := c.items.Add(cacheKey(sessionID, key), entry, gocache.DefaultExpiration); err != nil {
		return CacheEntry{}, fmt.Errorf("%w: %s/%s", ErrEntryExists, sessionID, key)
	}
	return entry, nil
}

// Get returns the entry for a session slot.
func (c *SessionCache) Get(sessionID, key string) (CacheEntry, bool) {
	v, ok := c.items.Get(cacheKey(sessionID, key))
	if !ok {
		return CacheEntry{}, false
	}
	entry, ok := v.(CacheEntry)
	return entry, ok
}

// Session returns every live entry of a session, sorted by key.
func (c *SessionCache) Session(sessionID string) []CacheEntry {
	prefix := sessionID + keySeparator
	var out []CacheEntry
	for k, item := range c.items.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if entry, ok := item.Object.(CacheEntry); ok {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup finds an entry by its local file name.
func (c *SessionCache) Lookup(fileName string) (CacheEntry, bool) {
	for _, item := range c.items.Items() {
		if entry, ok := item.Object.(CacheEntry); ok && entry.FileName == fileName {
			return entry, true
		}
	}
	return CacheEntry{}, false
}

// DeleteSession drops every entry of a session and removes its files.
func (c *SessionCache) DeleteSession(sessionID string) int {
	prefix := sessionID + keySeparator
	n := 0
	for k := range c.items.Items() {
		if strings.HasPrefix(k, prefix) {
			c.items.Delete(k)
			n++
		}
	}
	return n
}

// Clear drops every entry and removes its file.
func (c *SessionCache) Clear() int {
	n := 0
	for k := range c.items.Items() {
		c.items.Delete(k)
		n++
	}
	return n
}

// DeleteExpired evicts expired entries now instead of waiting for the janitor.
func (c *SessionCache) DeleteExpired() {
	c.items.DeleteExpired()
}

// Len returns the number of live entries.
func (c *SessionCache) Len() int {
	return c.items.ItemCount()
}

func removeFile(_ string, v interface{}) {
	entry, ok := v.(CacheEntry)
	if !ok || entry.Path == "" {
		return
	}
	if err := os.Remove(entry.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", entry.Path).Msg("Failed to remove cached artwork")
		return
	}
	log.Debug().Str("session", entry.SessionID).Str("key", entry.Key).Msg("Evicted cached artwork")
}
