// Package worker runs the sheet mirror: it consumes ledger change events and
// rewrites the affected owner's sheet, and it resyncs every owner on a
// schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reseller/internal/amqp"
	"reseller/internal/services"
)

// stopTimeout bounds the wait for a running resync on shutdown.
const stopTimeout = 30 * time.Second

// Mirror rewrites the sheet of one owner.
type Mirror interface {
	MirrorOwner(ctx context.Context, ownerID, trigger string) error
}

// Scheduler runs the periodic resync.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Consumer feeds change messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker ties the change consumer and the resync schedule together.
type MirrorWorker struct {
	mirror    Mirror
	scheduler Scheduler
	consumer  Consumer
}

func NewMirrorWorker(mirror Mirror, scheduler Scheduler, consumer Consumer) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, scheduler: scheduler, consumer: consumer}
}

// HandleChange mirrors the owner named by msg. Every change type rewrites the
// whole owner sheet, so a deleted record simply disappears from it.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.DebugContext(ctx, "Processing ledger change",
		"component", "worker",
		"type", msg.Type,
		"id", msg.ID,
		"owner_id", msg.OwnerID,
		"published_at", msg.Timestamp)

	if err := w.mirror.MirrorOwner(ctx, msg.OwnerID, services.TriggerEvent); err != nil {
		return fmt.Errorf("mirror owner %s: %w", msg.OwnerID, err)
	}
	return nil
}

// Run starts the schedule and consumes changes until ctx is cancelled. The
// schedule is stopped before Run returns.
func (w *MirrorWorker) Run(ctx context.Context) error {
	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start resync schedule: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
			defer cancel()
			if err := w.scheduler.Stop(stopCtx); err != nil {
				slog.Warn("Resync schedule did not stop cleanly", "component", "worker", "error", err)
			}
		}()
	}

	err := w.consumer.Consume(ctx, w.HandleChange)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
