package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reseller/internal/core"
	"reseller/internal/ledger"
)

func record(owner string, cat core.Category, cents int64, d core.Date) core.ExpenseRecord {
	return core.ExpenseRecord{OwnerID: owner, Category: cat, Amount: core.Money{Cents: cents}, Date: d}
}

func TestStoreInsertListOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	older, err := s.InsertExpense(ctx, record("o1", core.Fees, 100, core.NewDate(2024, 1, 1)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	newer, _ := s.InsertExpense(ctx, record("o1", core.Travel, 200, core.NewDate(2024, 3, 1)))
	_, _ = s.InsertExpense(ctx, record("o2", core.Travel, 300, core.NewDate(2024, 2, 1)))

	if older.ID == "" || older.ID == newer.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", older.ID, newer.ID)
	}

	got, err := s.ListExpenses(ctx, "o1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("unexpected order: %+v", got)
	}

	owners, _ := s.ListOwners(ctx)
	if len(owners) != 2 || owners[0] != "o1" || owners[1] != "o2" {
		t.Fatalf("unexpected owners: %v", owners)
	}
}

func TestStoreUpdateDeleteScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	r, _ := s.InsertExpense(ctx, record("o1", core.Fees, 100, core.NewDate(2024, 1, 1)))

	amount := core.Money{Cents: 999}
	if _, err := s.UpdateExpense(ctx, "o2", r.ID, core.ExpensePatch{Amount: &amount}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	updated, err := s.UpdateExpense(ctx, "o1", r.ID, core.ExpensePatch{Amount: &amount})
	if err != nil || updated.Amount.Cents != 999 || updated.ID != r.ID {
		t.Fatalf("unexpected update: %+v err=%v", updated, err)
	}

	if err := s.DeleteExpense(ctx, "o2", r.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "o1", r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteExpense(ctx, "o1", r.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should yield empty store: %v", err)
	}
	if got, _ := s.ListExpenses(context.Background(), "o1"); len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}

	seed := `[{"ownerId":"o1","category":"shipping","amount":{"cents":1500},"date":"2024-02-01","isRecurring":false},
{"ownerId":"o1","category":"software","amount":{"cents":900},"date":"2024-01-01","isRecurring":true}]`
	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, _ := s.ListExpenses(context.Background(), "o1")
	if len(got) != 2 || got[0].Category != core.Shipping || !got[1].IsRecurring {
		t.Fatalf("unexpected seeded records: %+v", got)
	}
}
