package ledger

import (
	"context"
	"errors"

	"reseller/internal/core"
)

// ErrNotFound is returned by stores when a record does not exist for the owner.
var ErrNotFound = errors.New("expense not found")

// Ports for the collaborators a ledger depends on.
type (
	// Store persists expense records. Implementations assign IDs on insert and
	// list records by date, most recent first.
	Store interface {
		ListExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error)
		InsertExpense(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error)
		UpdateExpense(ctx context.Context, ownerID, id string, patch core.ExpensePatch) (core.ExpenseRecord, error)
		DeleteExpense(ctx context.Context, ownerID, id string) error
	}

	// Session resolves the user behind the current request.
	Session interface {
		CurrentUser(ctx context.Context) (core.User, error)
	}

	// Publisher is notified after a write has been persisted.
	Publisher interface {
		PublishChange(ctx context.Context, change Change) error
	}
)

// ChangeType names the kind of write that happened.
type ChangeType string

const (
	Created ChangeType = "created"
	Updated ChangeType = "updated"
	Deleted ChangeType = "deleted"
)

// Change describes a persisted write.
type Change struct {
	Type    ChangeType
	ID      string
	OwnerID string
}
