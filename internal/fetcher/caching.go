package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/storage"
)

// TraceStore is the part of the history the cache needs.
type TraceStore interface {
	SaveTrace(ctx context.Context, trace *storage.Trace) error
	LatestByWord(ctx context.Context, word string, notBefore time.Time) (*storage.Trace, error)
}

// Caching answers repeated searches from the trace history and records
// every fresh result there.
type Caching struct {
	next     Fetcher
	store    TraceStore
	ttl      time.Duration
	provider string
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewCaching wraps next. A non-positive ttl disables lookups; fresh results
// are still stored.
func NewCaching(next Fetcher, store TraceStore, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Caching {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	provider := "unknown"
	if n, ok := next.(Named); ok {
		provider = n.Name()
	}
	return &Caching{
		next:     next,
		store:    store,
		ttl:      ttl,
		provider: provider,
		clock:    clock,
		log:      logger.With("adapter", "cache"),
	}
}

// Name implements Named.
func (c *Caching) Name() string { return c.provider }

// FetchWordEvolution implements Fetcher.
func (c *Caching) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	trace, _, err := c.Trace(ctx, word)
	if err != nil {
		return nil, err
	}
	return &trace.Evolution, nil
}

// Trace returns the stored trace for word, fetching and storing one when
// the history has nothing fresh. cached reports a history hit.
func (c *Caching) Trace(ctx context.Context, word string) (trace *storage.Trace, cached bool, err error) {
	if c.ttl > 0 {
		hit, err := c.store.LatestByWord(ctx, word, c.clock.Now().Add(-c.ttl))
		switch {
		case err == nil:
			c.log.DebugContext(ctx, "cache hit", slog.String("word", word), slog.String("id", hit.ID))
			return hit, true, nil
		case errors.Is(err, storage.ErrNotFound):
		default:
			c.log.WarnContext(ctx, "cache lookup failed", slog.String("word", word), slog.String("error", err.Error()))
		}
	}

	evo, err := c.next.FetchWordEvolution(ctx, word)
	if err != nil {
		return nil, false, err
	}

	trace = &storage.Trace{
		Word:      word,
		Provider:  c.provider,
		FetchedAt: c.clock.Now(),
		Evolution: *evo,
	}
	// A history write failure does not fail the search; the trace is
	// returned without an ID.
	if err := c.store.SaveTrace(ctx, trace); err != nil {
		trace.ID = ""
		c.log.WarnContext(ctx, "store trace failed", slog.String("word", word), slog.String("error", err.Error()))
	}
	return trace, false, nil
}
