// Package assetcache holds decoded chart graphics in memory for a bounded
// lifetime so HTTP byte-serving and report rendering can reference them by
// id instead of re-shipping binary payloads.
package assetcache

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DHCross/WovenWebApp-sub001/internal/graphics"
)

// DefaultTTL bounds how long a stored chart asset stays servable.
const DefaultTTL = 30 * time.Minute

// ErrEmptyBuffer is returned when Store is called without payload bytes.
// Store failures are synchronous; no identifier is ever promised for them.
var ErrEmptyBuffer = errors.New("assetcache: empty buffer")

// Meta describes a stored asset beyond its raw bytes.
type Meta struct {
	ContentType string
	Format      string
	FieldPath   string
	Role        string // which chart subject the graphic belongs to
	ChartType   string
	Scope       string
	TTL         time.Duration // 0 means the cache default
}

// Entry is one cached asset. External entries represent URL references and
// never occupy payload storage nor expire; their lifetime is not the
// cache's responsibility.
type Entry struct {
	ID          string    `json:"id"`
	Data        []byte    `json:"-"`
	URL         string    `json:"url,omitempty"`
	External    bool      `json:"external,omitempty"`
	ContentType string    `json:"content_type"`
	Format      string    `json:"format"`
	FieldPath   string    `json:"field_path,omitempty"`
	Role        string    `json:"role,omitempty"`
	ChartType   string    `json:"chart_type,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Cache is a process-wide TTL map for chart assets. The clock is injected so
// expiry is testable; construct one per process and pass the handle around
// rather than reaching for a package-level singleton.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Cache with the given default TTL (0 means DefaultTTL) and
// clock (nil means time.Now).
func New(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     now,
	}
}

// Store inserts a new asset under a fresh identifier and returns the id and
// absolute expiry. Entries are never updated in place; every store is an
// independent insert.
func (c *Cache) Store(data []byte, meta Meta) (string, time.Time, error) {
	if len(data) == 0 {
		return "", time.Time{}, ErrEmptyBuffer
	}

	ttl := meta.TTL
	if ttl <= 0 {
		ttl = c.ttl
	}

	now := c.now()
	entry := Entry{
		ID:          uuid.New().String(),
		Data:        data,
		ContentType: meta.ContentType,
		Format:      meta.Format,
		FieldPath:   meta.FieldPath,
		Role:        meta.Role,
		ChartType:   meta.ChartType,
		Scope:       meta.Scope,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if entry.ContentType == "" {
		entry.ContentType = "application/octet-stream"
	}
	if entry.Format == "" {
		entry.Format = "bin"
	}

	c.mu.Lock()
	c.entries[entry.ID] = entry
	c.mu.Unlock()

	return entry.ID, entry.ExpiresAt, nil
}

// Get returns the entry for id if it exists and has not expired. An entry
// found past its expiry is deleted on the spot and reported as missing, so
// an expired asset is never served regardless of whether an eager prune ran
// first.
func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		delete(c.entries, id)
		return Entry{}, false
	}
	return entry, true
}

// PruneExpired deletes every entry whose expiry has passed as of now and
// returns how many were removed. It is idempotent and invoked
// opportunistically before each extraction batch rather than on a timer.
func (c *Cache) PruneExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries (including any not yet pruned).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Ingest prunes expired entries, then stores every inline packet from one
// extraction batch. External URL packets pass through as unstored reference
// entries. Packets whose buffers are somehow empty are skipped; they carry
// nothing servable.
func (c *Cache) Ingest(packets []graphics.Packet, meta Meta) []Entry {
	c.PruneExpired(c.now())

	var out []Entry
	for _, p := range packets {
		if p.External() {
			out = append(out, Entry{
				URL:         p.URL,
				External:    true,
				ContentType: p.ContentType,
				Format:      p.Format,
				FieldPath:   p.FieldPath,
				Role:        meta.Role,
				ChartType:   meta.ChartType,
				Scope:       meta.Scope,
			})
			continue
		}

		m := meta
		m.ContentType = p.ContentType
		m.Format = p.Format
		m.FieldPath = p.FieldPath
		id, expires, err := c.Store(p.Data, m)
		if err != nil {
			continue
		}
		out = append(out, Entry{
			ID:          id,
			ContentType: p.ContentType,
			Format:      p.Format,
			FieldPath:   p.FieldPath,
			Role:        meta.Role,
			ChartType:   meta.ChartType,
			Scope:       meta.Scope,
			ExpiresAt:   expires,
		})
	}
	return out
}
