// Package sheets mirrors ledgers into a spreadsheet, one tab per owner.
package sheets

import (
	"context"

	"reseller/internal/core"
	"reseller/internal/export"
)

// LedgerWriter replaces the content of an owner's tab with values.
type LedgerWriter interface {
	WriteLedger(ctx context.Context, ownerID string, values [][]any) error
}

// Grid lays out records followed by the summary block. Record columns are
// the CSV export columns so the sheet and the download agree.
func Grid(records []core.ExpenseRecord, s core.Summary) [][]any {
	columns := export.ExpenseColumns(s.AsOf)
	rows := make([][]any, 0, len(records)+len(s.ByCategory)+8)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.Label
	}
	rows = append(rows, header)

	for _, r := range records {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = c.GetValue(r)
		}
		rows = append(rows, row)
	}

	rows = append(rows,
		[]any{},
		[]any{"As of", s.AsOf.String()},
		[]any{"Total expenses", s.Total.String()},
		[]any{"Recurring monthly", s.RecurringMonthly.String()},
		[]any{},
		[]any{"Category", "Amount"},
	)
	for _, c := range s.ByCategory {
		rows = append(rows, []any{c.Category.Label(), c.Amount.String()})
	}
	return rows
}
