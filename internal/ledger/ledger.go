// Package ledger keeps the in-memory view of one reseller's expenses and
// derives the financial aggregates shown on the reporting pages.
//
// Writes go to the Store first; the in-memory collection is only touched
// after the store call succeeded. Created records are prepended and updated
// records keep their position, so the collection is only date-ordered right
// after a Refetch.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"reseller/internal/core"
)

// ErrForeignOwner is returned when the session user does not own the ledger.
var ErrForeignOwner = errors.New("session user does not own this ledger")

// Ledger owns the ordered record collection of a single owner.
type Ledger struct {
	ownerID   string
	store     Store
	session   Session
	publisher Publisher

	mu       sync.RWMutex
	expenses []core.ExpenseRecord
	loading  bool
	err      error
}

// View is the snapshot consumed by the presentation layer.
type View struct {
	Expenses []core.ExpenseRecord
	Loading  bool
	Err      error
	Summary  core.Summary
}

// New creates an empty ledger for ownerID. Call Refetch to load it.
// publisher may be nil.
func New(ownerID string, store Store, session Session, publisher Publisher) *Ledger {
	return &Ledger{
		ownerID:   ownerID,
		store:     store,
		session:   session,
		publisher: publisher,
		expenses:  []core.ExpenseRecord{},
	}
}

func (l *Ledger) OwnerID() string {
	return l.ownerID
}

// Refetch reloads the collection from the store. On failure the previous
// collection is kept and the error is recorded in the view.
func (l *Ledger) Refetch(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	records, err := l.store.ListExpenses(ctx, l.ownerID)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.err = fmt.Errorf("list expenses: %w", err)
		return l.err
	}
	l.err = nil
	l.expenses = append([]core.ExpenseRecord{}, records...)

	slog.DebugContext(ctx, "Ledger loaded", "owner_id", l.ownerID, "count", len(records))
	return nil
}

// Create persists data as a new record of the session user and puts the
// stored record first in the collection.
func (l *Ledger) Create(ctx context.Context, data core.ExpenseRecord) (core.ExpenseRecord, error) {
	user, err := l.currentOwner(ctx)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	data.ID = ""
	data.OwnerID = user.ID
	if err := data.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	stored, err := l.store.InsertExpense(ctx, data)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("insert expense: %w", err)
	}

	l.mu.Lock()
	l.expenses = append([]core.ExpenseRecord{stored}, l.expenses...)
	l.mu.Unlock()

	l.publish(ctx, Change{Type: Created, ID: stored.ID, OwnerID: stored.OwnerID})
	return stored, nil
}

// Update persists patch and replaces the record in place. A record that is
// not in the collection is not added.
func (l *Ledger) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.ExpenseRecord, error) {
	if _, err := l.currentOwner(ctx); err != nil {
		return core.ExpenseRecord{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	updated, err := l.store.UpdateExpense(ctx, l.ownerID, id, patch)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense %s: %w", id, err)
	}

	l.mu.Lock()
	for i := range l.expenses {
		if l.expenses[i].ID == id {
			l.expenses[i] = updated
			break
		}
	}
	l.mu.Unlock()

	l.publish(ctx, Change{Type: Updated, ID: id, OwnerID: l.ownerID})
	return updated, nil
}

// Delete removes the record from the store and from the collection.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if _, err := l.currentOwner(ctx); err != nil {
		return err
	}

	if err := l.store.DeleteExpense(ctx, l.ownerID, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}

	l.mu.Lock()
	for i := range l.expenses {
		if l.expenses[i].ID == id {
			l.expenses = append(l.expenses[:i:i], l.expenses[i+1:]...)
			break
		}
	}
	l.mu.Unlock()

	l.publish(ctx, Change{Type: Deleted, ID: id, OwnerID: l.ownerID})
	return nil
}

// Expenses returns a copy of the collection in its current order.
func (l *Ledger) Expenses() []core.ExpenseRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.ExpenseRecord{}, l.expenses...)
}

// Summary aggregates the current collection as of asOf.
func (l *Ledger) Summary(asOf core.Date) core.Summary {
	return core.Aggregate(l.Expenses(), asOf)
}

// View returns the collection, load state and aggregates as of asOf.
func (l *Ledger) View(asOf core.Date) View {
	l.mu.RLock()
	expenses := append([]core.ExpenseRecord{}, l.expenses...)
	loading, err := l.loading, l.err
	l.mu.RUnlock()

	return View{
		Expenses: expenses,
		Loading:  loading,
		Err:      err,
		Summary:  core.Aggregate(expenses, asOf),
	}
}

func (l *Ledger) currentOwner(ctx context.Context) (core.User, error) {
	user, err := l.session.CurrentUser(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("current user: %w", err)
	}
	if user.ID != l.ownerID {
		return core.User{}, ErrForeignOwner
	}
	return user, nil
}

func (l *Ledger) publish(ctx context.Context, change Change) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishChange(ctx, change); err != nil {
		// The write is already persisted; the mirror catches up on resync.
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"type", change.Type,
			"id", change.ID,
			"owner_id", change.OwnerID,
			"error", err)
	}
}
