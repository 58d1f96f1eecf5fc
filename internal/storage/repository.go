package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"reseller/internal/core"
	"reseller/internal/ledger"
)

// SQLRepository stores expense records in SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	queries *Queries
	now     func() time.Time
}

var _ ledger.Store = (*SQLRepository)(nil)

// NewSQLiteRepository opens (and migrates) the SQLite database at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository opens (and migrates) the PostgreSQL database at dsn.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return open(Postgres, dsn)
}

func open(d Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		dialect: d,
		queries: New(db, d),
		now:     time.Now,
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) ListExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.ListExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses by owner: %w", err)
	}

	records := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *SQLRepository) InsertExpense(ctx context.Context, rec core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	now := r.now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := r.queries.CreateExpense(ctx, fromRecord(rec)); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", rec.ID,
		"owner_id", rec.OwnerID,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents,
		"recurring", rec.IsRecurring,
		"dialect", r.dialect)

	return rec, nil
}

// UpdateExpense applies patch inside a transaction so the read-modify-write
// sees a consistent row.
func (r *SQLRepository) UpdateExpense(ctx context.Context, ownerID, id string, patch core.ExpensePatch) (core.ExpenseRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetOwnedExpense(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense: %w", err)
	}

	current, err := toRecord(row)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	updated.UpdatedAt = r.now().UTC()

	n, err := q.UpdateExpense(ctx, fromRecord(updated))
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.ExpenseRecord{}, ledger.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Expense updated", "id", id, "owner_id", ownerID)
	return updated, nil
}

func (r *SQLRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "owner_id", ownerID)
	return nil
}

// GetExpense retrieves a single record by ID regardless of owner.
func (r *SQLRepository) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toRecord(row)
}

func (r *SQLRepository) ListOwners(ctx context.Context) ([]string, error) {
	owners, err := r.queries.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

func fromRecord(rec core.ExpenseRecord) Expense {
	return Expense{
		ID:          rec.ID,
		OwnerID:     rec.OwnerID,
		Category:    string(rec.Category),
		Description: rec.Description,
		AmountCents: rec.Amount.Cents,
		ExpenseDate: rec.Date.String(),
		IsRecurring: rec.IsRecurring,
		CreatedAt:   rec.CreatedAt.UnixNano(),
		UpdatedAt:   rec.UpdatedAt.UnixNano(),
	}
}

func toRecord(e Expense) (core.ExpenseRecord, error) {
	date, err := core.ParseDate(e.ExpenseDate)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s has bad date %q: %w", e.ID, e.ExpenseDate, err)
	}
	return core.ExpenseRecord{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Category:    core.Category(e.Category),
		Description: e.Description,
		Amount:      core.Money{Cents: e.AmountCents},
		Date:        date,
		IsRecurring: e.IsRecurring,
		CreatedAt:   time.Unix(0, e.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, e.UpdatedAt).UTC(),
	}, nil
}
