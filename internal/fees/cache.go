package fees

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/exchange"
	"github.com/suwandre/arbwatch/internal/models"
)

type entry struct {
	schedule  models.FeeSchedule
	source    Source
	fetchedAt time.Time
}

// Cache keeps one resolved schedule per venue. With a zero maxAge an entry
// lives for the process lifetime unless Refresh is called. Failed fetches are
// never cached, so the next round asks the venue again.
type Cache struct {
	defaults models.FeeSchedule
	maxAge   time.Duration
	entries  map[string]entry
	mu       sync.RWMutex
	now      func() time.Time
}

func NewCache(defaults models.FeeSchedule, maxAge time.Duration) *Cache {
	return &Cache{
		defaults: defaults,
		maxAge:   maxAge,
		entries:  make(map[string]entry),
		now:      time.Now,
	}
}

// Defaults returns the configured fallback schedule.
func (c *Cache) Defaults() models.FeeSchedule {
	return c.defaults
}

// Get returns the cached schedule for ex, fetching it if absent or expired.
// The returned error is informational: the schedule is always usable.
func (c *Cache) Get(ctx context.Context, ex exchange.Exchange) (models.FeeSchedule, Source, error) {
	c.mu.RLock()
	e, ok := c.entries[ex.Name()]
	c.mu.RUnlock()

	if ok && (c.maxAge <= 0 || c.now().Sub(e.fetchedAt) < c.maxAge) {
		return e.schedule, e.source, nil
	}
	return c.Refresh(ctx, ex)
}

// Refresh fetches ex's schedule unconditionally and caches it on success.
func (c *Cache) Refresh(ctx context.Context, ex exchange.Exchange) (models.FeeSchedule, Source, error) {
	partial, err := ex.GetFees(ctx)
	if err != nil {
		return c.defaults, SourceDefault, err
	}

	schedule, source := Resolve(partial, c.defaults)

	c.mu.Lock()
	c.entries[ex.Name()] = entry{schedule: schedule, source: source, fetchedAt: c.now()}
	c.mu.Unlock()

	log.Debug().
		Str("exchange", ex.Name()).
		Float64("maker", schedule.Maker).
		Float64("taker", schedule.Taker).
		Str("source", string(source)).
		Msg("fee schedule cached")

	return schedule, source, nil
}
