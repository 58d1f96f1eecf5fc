package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"reseller/internal/cache"
	"reseller/internal/ledger"
	"reseller/internal/metrics"
)

// loadTimeout bounds a shared ledger load.
const loadTimeout = 30 * time.Second

// RegistryConfig bounds the number of ledgers kept in memory.
type RegistryConfig struct {
	MaxLedgers int
	TTL        time.Duration
}

// DefaultRegistryConfig returns sensible defaults
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxLedgers: 256,
		TTL:        15 * time.Minute,
	}
}

// Registry hands out one loaded Ledger per owner. Ledgers are built and
// refetched on first use and dropped after the TTL or when the cache is full.
type Registry struct {
	store     ledger.Store
	session   ledger.Session
	publisher ledger.Publisher
	ledgers   *cache.LRUCache[*ledger.Ledger]
	loads     singleflight.Group
}

// NewRegistry creates a registry. publisher may be nil.
func NewRegistry(store ledger.Store, session ledger.Session, publisher ledger.Publisher, cfg RegistryConfig) *Registry {
	if cfg.MaxLedgers < 1 || cfg.TTL <= 0 {
		cfg = DefaultRegistryConfig()
	}
	r := &Registry{
		store:     store,
		session:   session,
		publisher: &countingPublisher{next: publisher},
		ledgers:   cache.NewLRUCache[*ledger.Ledger](cfg.MaxLedgers, cfg.TTL),
	}
	r.ledgers.OnEvict(func(owner string, _ *ledger.Ledger) {
		slog.Debug("Ledger evicted", "component", "cache", "owner_id", owner)
	})
	return r
}

// Cache exposes the underlying cache so a cache.Manager can clean it.
func (r *Registry) Cache() cache.Cleaner {
	return r.ledgers
}

// Get returns the owner's ledger, loading it from the store on a miss.
// Concurrent misses for the same owner share one load. The load is detached
// from the caller's cancellation so one aborted request does not fail the
// others waiting on it. A failed load is not cached.
func (r *Registry) Get(ctx context.Context, ownerID string) (*ledger.Ledger, error) {
	if l, ok := r.ledgers.Get(ownerID); ok {
		metrics.IncRegistryLookup(true)
		return l, nil
	}
	metrics.IncRegistryLookup(false)

	ch := r.loads.DoChan(ownerID, func() (any, error) {
		if l, ok := r.ledgers.Get(ownerID); ok {
			return l, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		l := ledger.New(ownerID, r.store, r.session, r.publisher)
		if err := l.Refetch(loadCtx); err != nil {
			metrics.IncLedgerError("refetch")
			return nil, err
		}
		r.ledgers.Set(ownerID, l)
		metrics.SetRegistrySize(r.ledgers.Size())
		return l, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load ledger for %s: %w", ownerID, res.Err)
		}
		return res.Val.(*ledger.Ledger), nil
	}
}

// Invalidate drops the cached ledger of an owner.
func (r *Registry) Invalidate(ownerID string) {
	r.ledgers.Delete(ownerID)
	metrics.SetRegistrySize(r.ledgers.Size())
}

// Size returns the number of ledgers currently held.
func (r *Registry) Size() int {
	return r.ledgers.Size()
}

// countingPublisher records persisted writes and publish failures before
// handing the change to the real publisher.
type countingPublisher struct {
	next ledger.Publisher
}

func (p *countingPublisher) PublishChange(ctx context.Context, change ledger.Change) error {
	metrics.IncLedgerWrite(string(change.Type))
	if p.next == nil {
		return nil
	}
	if err := p.next.PublishChange(ctx, change); err != nil {
		metrics.IncPublishFailure()
		return err
	}
	return nil
}
