package dispatch

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

// DefaultContextTTL bounds how long a rendered notification's follow-up
// button can resume its match context.
const DefaultContextTTL = time.Hour

// MatchContext lets a later button press reference the match that
// produced it.
type MatchContext struct {
	Token         string
	Fields        signal.Fields
	AgeMinutes    float64
	StrategyIndex int
	StrategyName  string
	Trojan        *strategy.Trojan
}

// Registry is the short-lived correlation map, keyed by a short random
// id. Entries expire after the TTL with the same lazy sweep discipline as
// the dedup cache; a lookup does not consume the entry.
type Registry struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]registryEntry
}

type registryEntry struct {
	ctx      MatchContext
	storedAt time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &Registry{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]registryEntry{},
	}
}

// Put stores the context and returns its fresh correlation id.
func (r *Registry) Put(ctx MatchContext) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	id := newCorrelationID()
	r.entries[id] = registryEntry{ctx: ctx, storedAt: now}
	return id
}

// Get resolves a correlation id to its match context.
func (r *Registry) Get(id string) (MatchContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep(r.now())
	entry, ok := r.entries[id]
	return entry.ctx, ok
}

// Latest returns the newest live context recorded for a strategy, so
// flows started from a strategy view can reuse its last matched token.
func (r *Registry) Latest(strategyName string) (MatchContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep(r.now())
	var best registryEntry
	var found bool
	for _, entry := range r.entries {
		if entry.ctx.StrategyName != strategyName {
			continue
		}
		if !found || entry.storedAt.After(best.storedAt) {
			best = entry
			found = true
		}
	}
	return best.ctx, found
}

func (r *Registry) sweep(now time.Time) {
	for id, entry := range r.entries {
		if now.Sub(entry.storedAt) > r.ttl {
			delete(r.entries, id)
		}
	}
}

func newCorrelationID() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
