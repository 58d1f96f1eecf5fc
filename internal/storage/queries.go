package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour and database/sql driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) DriverName() string {
	return string(d)
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the hand-written statements used by the repository.
// Statements are written with '?' placeholders and rebound per dialect.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// Expense is the row shape of the expenses table.
type Expense struct {
	ID          string
	OwnerID     string
	Category    string
	Description string
	AmountCents int64
	ExpenseDate string
	IsRecurring bool
	CreatedAt   int64
	UpdatedAt   int64
}

const expenseColumns = `id, owner_id, category, description, amount_cents, expense_date, is_recurring, created_at, updated_at`

const createExpense = `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, e Expense) error {
	_, err := q.db.ExecContext(ctx, q.rebind(createExpense),
		e.ID, e.OwnerID, e.Category, e.Description, e.AmountCents,
		e.ExpenseDate, e.IsRecurring, e.CreatedAt, e.UpdatedAt)
	return err
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, q.rebind(getExpense), id))
}

const getOwnedExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND owner_id = ?`

func (q *Queries) GetOwnedExpense(ctx context.Context, ownerID, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, q.rebind(getOwnedExpense), id, ownerID))
}

const listExpensesByOwner = `SELECT ` + expenseColumns + ` FROM expenses
WHERE owner_id = ?
ORDER BY expense_date DESC, created_at DESC, id DESC`

func (q *Queries) ListExpensesByOwner(ctx context.Context, ownerID string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(listExpensesByOwner), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const updateExpense = `UPDATE expenses
SET category = ?, description = ?, amount_cents = ?, expense_date = ?, is_recurring = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, e Expense) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(updateExpense),
		e.Category, e.Description, e.AmountCents, e.ExpenseDate, e.IsRecurring, e.UpdatedAt,
		e.ID, e.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(deleteExpense), id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listOwners = `SELECT DISTINCT owner_id FROM expenses ORDER BY owner_id`

func (q *Queries) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.OwnerID, &e.Category, &e.Description, &e.AmountCents,
		&e.ExpenseDate, &e.IsRecurring, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// rebind rewrites '?' placeholders to '$n' for postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
