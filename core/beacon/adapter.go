package beacon

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTTL          = 30 * time.Second
	defaultFetchTimeout = 5 * time.Second
	defaultCacheRounds  = 128
)

// Adapter serves the most recent beacon round, refetching when the cached
// round goes stale and degrading to local randomness when the external
// source fails. Fetch failures are never surfaced to callers; a degraded
// round tagged SourceLocalFallback is returned instead.
type Adapter struct {
	source       Source
	ttl          time.Duration
	fetchTimeout time.Duration
	log          zerolog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	latest *Round
	rounds *lru.Cache[uint64, *Round]
}

type Option func(*Adapter)

// WithTTL overrides the freshness threshold for the cached latest round.
func WithTTL(ttl time.Duration) Option {
	return func(a *Adapter) { a.ttl = ttl }
}

// WithFetchTimeout bounds a single fetch from the external source.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.fetchTimeout = d }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// NewAdapter builds an Adapter over source. A nil source yields an adapter
// that always serves local-fallback rounds, which is the degraded mode used
// in tests and offline deployments. cacheRounds bounds the append-only round
// cache; values below 1 fall back to the default.
func NewAdapter(source Source, cacheRounds int, opts ...Option) (*Adapter, error) {
	if cacheRounds < 1 {
		cacheRounds = defaultCacheRounds
	}
	rounds, err := lru.New[uint64, *Round](cacheRounds)
	if err != nil {
		return nil, errors.WithMessage(err, "beacon: build round cache")
	}

	a := &Adapter{
		source:       source,
		ttl:          defaultTTL,
		fetchTimeout: defaultFetchTimeout,
		log:          zerolog.Nop(),
		rounds:       rounds,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Latest returns the most recently fetched round if it is still fresh,
// otherwise fetches a new one. Concurrent refetches are collapsed into a
// single upstream call. Latest never fails because of the external source;
// the only error paths are local entropy exhaustion.
func (a *Adapter) Latest(ctx context.Context) (*Round, error) {
	if r := a.fresh(); r != nil {
		return r, nil
	}

	v, err, _ := a.group.Do("latest", func() (interface{}, error) {
		// another flight may have refreshed while we queued
		if r := a.fresh(); r != nil {
			return r, nil
		}
		return a.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Round), nil
}

// ByRound returns a previously fetched round by its round number, for audit
// replay. Fallback rounds are never cached and cannot be replayed.
func (a *Adapter) ByRound(number uint64) (*Round, bool) {
	return a.rounds.Get(number)
}

func (a *Adapter) fresh() *Round {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest != nil && time.Since(a.latest.FetchedAt) < a.ttl {
		return a.latest
	}
	return nil
}

func (a *Adapter) refresh(ctx context.Context) (*Round, error) {
	if a.source != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
		defer cancel()

		round, err := a.source.FetchLatest(fetchCtx)
		if err == nil && round != nil && len(round.Randomness) > 0 {
			if round.FetchedAt.IsZero() {
				round.FetchedAt = time.Now()
			}
			a.mu.Lock()
			a.latest = round
			a.mu.Unlock()
			a.rounds.ContainsOrAdd(round.Number, round)
			return round, nil
		}
		a.log.Warn().Err(err).Msg("beacon fetch failed, serving local fallback randomness")
	}

	fallback, err := fallbackRound()
	if err != nil {
		return nil, err
	}
	// Fallback rounds are intentionally not cached as the latest round:
	// the next call should try the external source again.
	return fallback, nil
}
