package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reseller/internal/amqp"
	"reseller/internal/ledger"
	"reseller/internal/services"
)

type fakeMirror struct {
	mu      sync.Mutex
	calls   []string
	trigger string
	err     error
}

func (m *fakeMirror) MirrorOwner(_ context.Context, owner, trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, owner)
	m.trigger = trigger
	return m.err
}

type fakeScheduler struct {
	started, stopped bool
	startErr         error
}

func (s *fakeScheduler) Start(context.Context) error {
	s.started = true
	return s.startErr
}

func (s *fakeScheduler) Stop(context.Context) error {
	s.stopped = true
	return nil
}

// fakeConsumer delivers its messages, then blocks until ctx is done.
type fakeConsumer struct {
	messages []*amqp.LedgerChangeMessage
	errs     []error
}

func (c *fakeConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.messages {
		c.errs = append(c.errs, handler(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleChange(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(mirror, nil, nil)

	msg := amqp.NewLedgerChangeMessage(ledger.Change{Type: ledger.Deleted, ID: "e1", OwnerID: "alice"})
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}
	if len(mirror.calls) != 1 || mirror.calls[0] != "alice" || mirror.trigger != services.TriggerEvent {
		t.Errorf("calls = %v trigger = %q", mirror.calls, mirror.trigger)
	}

	mirror.err = errors.New("sheets down")
	if err := w.HandleChange(context.Background(), msg); !errors.Is(err, mirror.err) {
		t.Errorf("err = %v, want wrapped mirror error", err)
	}
}

func TestRun(t *testing.T) {
	mirror := &fakeMirror{}
	scheduler := &fakeScheduler{}
	consumer := &fakeConsumer{messages: []*amqp.LedgerChangeMessage{
		amqp.NewLedgerChangeMessage(ledger.Change{Type: ledger.Created, ID: "e1", OwnerID: "alice"}),
		amqp.NewLedgerChangeMessage(ledger.Change{Type: ledger.Updated, ID: "e2", OwnerID: "bob"}),
	}}
	w := NewMirrorWorker(mirror, scheduler, consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !scheduler.started || !scheduler.stopped {
		t.Errorf("scheduler started=%v stopped=%v", scheduler.started, scheduler.stopped)
	}
	if len(mirror.calls) != 2 {
		t.Errorf("mirror calls = %v", mirror.calls)
	}
}

func TestRunFailsWhenScheduleFails(t *testing.T) {
	scheduler := &fakeScheduler{startErr: errors.New("bad spec")}
	w := NewMirrorWorker(&fakeMirror{}, scheduler, &fakeConsumer{})

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if scheduler.stopped {
		t.Error("Stop called after failed Start")
	}
}
