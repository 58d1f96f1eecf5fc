package ledger_test

import (
	"context"
	"errors"
	"testing"

	"reseller/internal/core"
	"reseller/internal/ledger"
	"reseller/internal/storage/memory"
)

type staticSession struct{ id string }

func (s staticSession) CurrentUser(context.Context) (core.User, error) {
	if s.id == "" {
		return core.User{}, errors.New("no session")
	}
	return core.User{ID: s.id}, nil
}

var errStoreDown = errors.New("store down")

// flakyStore fails every call while down is set.
type flakyStore struct {
	ledger.Store
	down bool
}

func (f *flakyStore) ListExpenses(ctx context.Context, owner string) ([]core.ExpenseRecord, error) {
	if f.down {
		return nil, errStoreDown
	}
	return f.Store.ListExpenses(ctx, owner)
}

func (f *flakyStore) InsertExpense(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error) {
	if f.down {
		return core.ExpenseRecord{}, errStoreDown
	}
	return f.Store.InsertExpense(ctx, r)
}

func (f *flakyStore) UpdateExpense(ctx context.Context, owner, id string, p core.ExpensePatch) (core.ExpenseRecord, error) {
	if f.down {
		return core.ExpenseRecord{}, errStoreDown
	}
	return f.Store.UpdateExpense(ctx, owner, id, p)
}

func (f *flakyStore) DeleteExpense(ctx context.Context, owner, id string) error {
	if f.down {
		return errStoreDown
	}
	return f.Store.DeleteExpense(ctx, owner, id)
}

type recordingPublisher struct {
	changes []ledger.Change
	err     error
}

func (p *recordingPublisher) PublishChange(_ context.Context, c ledger.Change) error {
	p.changes = append(p.changes, c)
	return p.err
}

func newLedger(t *testing.T) (*ledger.Ledger, *flakyStore, *recordingPublisher) {
	t.Helper()
	store := &flakyStore{Store: memory.New()}
	pub := &recordingPublisher{}
	l := ledger.New("owner-1", store, staticSession{id: "owner-1"}, pub)
	if err := l.Refetch(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	return l, store, pub
}

func mustCreate(t *testing.T, l *ledger.Ledger, r core.ExpenseRecord) core.ExpenseRecord {
	t.Helper()
	created, err := l.Create(context.Background(), r)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func TestCreatePrependsWithoutResort(t *testing.T) {
	l, _, pub := newLedger(t)

	newest := mustCreate(t, l, core.ExpenseRecord{Category: core.Shipping, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 6, 1)})
	oldest := mustCreate(t, l, core.ExpenseRecord{Category: core.Fees, Amount: core.Money{Cents: 200}, Date: core.NewDate(2023, 1, 1)})

	got := l.Expenses()
	if len(got) != 2 || got[0].ID != oldest.ID || got[1].ID != newest.ID {
		t.Fatalf("created records must be prepended regardless of date: %+v", got)
	}
	if oldest.OwnerID != "owner-1" {
		t.Fatalf("owner not taken from session: %q", oldest.OwnerID)
	}
	if len(pub.changes) != 2 || pub.changes[0].Type != ledger.Created {
		t.Fatalf("unexpected published changes: %+v", pub.changes)
	}

	// Refetch restores date ordering.
	if err := l.Refetch(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	got = l.Expenses()
	if got[0].ID != newest.ID {
		t.Fatalf("refetch should order by date desc: %+v", got)
	}
}

func TestUpdateKeepsPositionAndID(t *testing.T) {
	l, _, _ := newLedger(t)
	a := mustCreate(t, l, core.ExpenseRecord{Category: core.Shipping, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 1, 15)})
	b := mustCreate(t, l, core.ExpenseRecord{Category: core.Software, Amount: core.Money{Cents: 5000}, Date: core.NewDate(2024, 1, 1), IsRecurring: true})

	asOf := core.NewDate(2024, 4, 15)
	before := l.Summary(asOf)
	if before.Total.Cents != 30000 {
		t.Fatalf("unexpected total before update: %d", before.Total.Cents)
	}

	amount := core.Money{Cents: 2500}
	date := core.NewDate(2025, 1, 1)
	updated, err := l.Update(context.Background(), a.ID, core.ExpensePatch{Amount: &amount, Date: &date})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != a.ID {
		t.Fatalf("id changed: %q", updated.ID)
	}

	got := l.Expenses()
	if got[0].ID != b.ID || got[1].ID != a.ID || got[1].Amount.Cents != 2500 {
		t.Fatalf("update must replace in place: %+v", got)
	}
	if after := l.Summary(asOf); after.Total.Cents != 22500 {
		t.Fatalf("unexpected total after update: %d", after.Total.Cents)
	}
}

func TestDeleteRemovesFromAggregate(t *testing.T) {
	l, _, pub := newLedger(t)
	a := mustCreate(t, l, core.ExpenseRecord{Category: core.Shipping, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 1, 15)})
	mustCreate(t, l, core.ExpenseRecord{Category: core.Fees, Amount: core.Money{Cents: 700}, Date: core.NewDate(2024, 1, 16)})

	if err := l.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s := l.Summary(core.NewDate(2024, 1, 20))
	if s.Total.Cents != 700 {
		t.Fatalf("expected 700 after delete, got %d", s.Total.Cents)
	}
	if len(s.ByCategory) != 1 || s.ByCategory[0].Category != core.Fees {
		t.Fatalf("deleted category still aggregated: %+v", s.ByCategory)
	}
	if last := pub.changes[len(pub.changes)-1]; last.Type != ledger.Deleted || last.ID != a.ID {
		t.Fatalf("unexpected last change: %+v", last)
	}
}

func TestStoreFailureLeavesCollectionUntouched(t *testing.T) {
	l, store, pub := newLedger(t)
	a := mustCreate(t, l, core.ExpenseRecord{Category: core.Shipping, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1)})
	published := len(pub.changes)

	store.down = true
	ctx := context.Background()

	if _, err := l.Create(ctx, core.ExpenseRecord{Category: core.Fees, Date: core.NewDate(2024, 1, 1)}); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error on create, got %v", err)
	}
	amount := core.Money{Cents: 1}
	if _, err := l.Update(ctx, a.ID, core.ExpensePatch{Amount: &amount}); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error on update, got %v", err)
	}
	if err := l.Delete(ctx, a.ID); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error on delete, got %v", err)
	}
	if err := l.Refetch(ctx); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error on refetch, got %v", err)
	}

	got := l.Expenses()
	if len(got) != 1 || got[0].ID != a.ID || got[0].Amount.Cents != 100 {
		t.Fatalf("collection modified after failures: %+v", got)
	}
	if len(pub.changes) != published {
		t.Fatalf("failed writes must not publish")
	}
	view := l.View(core.NewDate(2024, 1, 1))
	if !errors.Is(view.Err, errStoreDown) || view.Loading {
		t.Fatalf("unexpected view state: err=%v loading=%v", view.Err, view.Loading)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	l, _, pub := newLedger(t)
	pub.err = errors.New("broker unavailable")
	if _, err := l.Create(context.Background(), core.ExpenseRecord{Category: core.Other, Date: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
	if len(l.Expenses()) != 1 {
		t.Fatalf("record not added")
	}
}

func TestForeignSessionRejected(t *testing.T) {
	store := memory.New()
	l := ledger.New("owner-1", store, staticSession{id: "owner-2"}, nil)
	_, err := l.Create(context.Background(), core.ExpenseRecord{Category: core.Other, Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, ledger.ErrForeignOwner) {
		t.Fatalf("expected ErrForeignOwner, got %v", err)
	}
	if len(l.Expenses()) != 0 {
		t.Fatalf("collection modified")
	}
}

func TestValidationErrorsBeforeStore(t *testing.T) {
	l, _, _ := newLedger(t)
	_, err := l.Create(context.Background(), core.ExpenseRecord{Category: "groceries", Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := l.Update(context.Background(), "x", core.ExpensePatch{}); !errors.Is(err, core.ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
}

func TestViewEmptyLedger(t *testing.T) {
	l, _, _ := newLedger(t)
	v := l.View(core.NewDate(2024, 1, 1))
	if len(v.Expenses) != 0 || v.Summary.Total.Cents != 0 || len(v.Summary.ByCategory) != 0 || v.Summary.RecurringMonthly.Cents != 0 {
		t.Fatalf("unexpected empty view: %+v", v)
	}
}

func TestUpdateOfRecordMissingFromCollection(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	// Written behind the ledger's back, so the loaded collection lacks it.
	stored, err := store.InsertExpense(ctx, core.ExpenseRecord{
		OwnerID:  "owner-1",
		Category: core.Travel,
		Amount:   core.Money{Cents: 900},
		Date:     core.NewDate(2024, 1, 5),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	amount := core.Money{Cents: 1000}
	updated, err := l.Update(ctx, stored.ID, core.ExpensePatch{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount != amount {
		t.Errorf("store returned %v, want %v", updated.Amount, amount)
	}
	if got := l.Expenses(); len(got) != 0 {
		t.Errorf("collection = %+v, want unchanged (empty)", got)
	}
}
