package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"reseller/internal/core"
	"reseller/internal/ledger"
	"reseller/internal/metrics"
	"reseller/internal/sheets"
)

// Mirror triggers.
const (
	TriggerEvent  = "event"
	TriggerResync = "resync"
)

// OwnerLister enumerates owners that have records.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// MirrorProcessorConfig holds configuration for the mirror processor
type MirrorProcessorConfig struct {
	// Schedule is a cron spec for the full resync (default: @daily). Empty
	// disables the scheduled resync.
	Schedule string

	// Concurrency bounds how many owners are mirrored at once during a resync (default: 4)
	Concurrency int

	// OwnerTimeout bounds a single owner mirror (default: 1m)
	OwnerTimeout time.Duration
}

// DefaultMirrorProcessorConfig returns sensible defaults
func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		Schedule:     "@daily",
		Concurrency:  4,
		OwnerTimeout: time.Minute,
	}
}

// MirrorProcessor writes owner ledgers with their aggregates to the sheet
// mirror, on demand and on a schedule.
type MirrorProcessor struct {
	store  ledger.Store
	owners OwnerLister
	writer sheets.LedgerWriter
	config MirrorProcessorConfig
	now    func() time.Time

	mu        sync.Mutex
	running   bool
	scheduler *cron.Cron
}

func NewMirrorProcessor(store ledger.Store, owners OwnerLister, writer sheets.LedgerWriter, config MirrorProcessorConfig) *MirrorProcessor {
	defaults := DefaultMirrorProcessorConfig()
	if config.Concurrency < 1 {
		config.Concurrency = defaults.Concurrency
	}
	if config.OwnerTimeout <= 0 {
		config.OwnerTimeout = defaults.OwnerTimeout
	}
	return &MirrorProcessor{
		store:  store,
		owners: owners,
		writer: writer,
		config: config,
		now:    time.Now,
	}
}

// MirrorOwner reloads the owner's records, aggregates them as of today and
// rewrites the owner's tab.
func (p *MirrorProcessor) MirrorOwner(ctx context.Context, ownerID, trigger string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveMirror(trigger, err, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, p.config.OwnerTimeout)
	defer cancel()

	records, err := p.store.ListExpenses(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list expenses for %s: %w", ownerID, err)
	}

	summary := core.Aggregate(records, core.DateOf(p.now()))
	if err := p.writer.WriteLedger(ctx, ownerID, sheets.Grid(records, summary)); err != nil {
		return fmt.Errorf("write ledger for %s: %w", ownerID, err)
	}

	slog.InfoContext(ctx, "Ledger mirrored",
		"owner_id", ownerID,
		"trigger", trigger,
		"count", len(records),
		"total_cents", summary.Total.Cents)
	return nil
}

// ResyncAll mirrors every owner with bounded concurrency. A failing owner
// does not stop the others; all failures are joined into the result.
func (p *MirrorProcessor) ResyncAll(ctx context.Context) error {
	owners, err := p.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, owner := range owners {
		g.Go(func() error {
			if err := p.MirrorOwner(gctx, owner, TriggerResync); err != nil {
				slog.WarnContext(gctx, "Owner resync failed", "owner_id", owner, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	slog.InfoContext(ctx, "Resync finished", "owners", len(owners), "failed", len(errs))
	return errors.Join(errs...)
}

// Start schedules the periodic resync. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("mirror processor is already running")
	}

	if p.config.Schedule == "" {
		slog.InfoContext(ctx, "Scheduled resync disabled")
		p.running = true
		return nil
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(p.config.Schedule, func() {
		if err := p.ResyncAll(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled resync had failures", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule resync %q: %w", p.config.Schedule, err)
	}
	scheduler.Start()

	p.scheduler = scheduler
	p.running = true

	slog.InfoContext(ctx, "Mirror processor started",
		"schedule", p.config.Schedule,
		"concurrency", p.config.Concurrency)
	return nil
}

// Stop halts the schedule and waits for a running resync to finish or for
// ctx to expire.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	scheduler := p.scheduler
	p.scheduler = nil
	p.running = false
	p.mu.Unlock()

	if scheduler == nil {
		return nil
	}

	select {
	case <-scheduler.Stop().Done():
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
