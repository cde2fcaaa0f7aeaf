// Package dedup suppresses repeated listing messages within a TTL window.
package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/solwatch/solwatch/internal/signal"
)

// DefaultTTL matches the historical six hour suppression window.
const DefaultTTL = 6 * time.Hour

var whitespaceRun = regexp.MustCompile(`\s+`)

// Cache is a TTL-keyed membership test over a message's content identity.
// Eviction is lazy: every call sweeps expired entries first, trading
// worst-case sweep cost for not needing a background goroutine.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]time.Time{},
	}
}

// IsDuplicate reports whether an equivalent message was seen within the
// TTL, recording the message when it was not. A duplicate hit does not
// refresh the original timestamp.
func (c *Cache) IsDuplicate(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, seen := range c.entries {
		if now.Sub(seen) > c.ttl {
			delete(c.entries, key)
		}
	}

	key := Key(text)
	if _, ok := c.entries[key]; ok {
		return true
	}
	c.entries[key] = now
	return false
}

// Len reports the live entry count for status surfaces.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key derives the content identity: the token address when one can be
// extracted, otherwise a hash of the normalized message text.
func Key(text string) string {
	if address := signal.ExtractTokenAddress(text); address != "" {
		return "token:" + address
	}
	digest := sha1.Sum([]byte(normalize(text)))
	return "msg:" + hex.EncodeToString(digest[:])
}

func normalize(text string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}
