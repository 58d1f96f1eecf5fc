// Package export renders expense records as CSV text.
package export

import (
	"strconv"
	"strings"

	"reseller/internal/core"
)

// Column describes one CSV column. A column without GetValue renders an
// empty field.
type Column[T any] struct {
	Key      string
	Label    string
	GetValue func(T) string
}

// Escape quotes a field when it contains a comma, a double quote, or a line
// break; embedded quotes are doubled. Other fields are returned unchanged.
func Escape(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// CSV renders a header line of column labels followed by one line per row.
// Lines are joined with "\n" and there is no trailing newline.
func CSV[T any](rows []T, columns []Column[T]) string {
	lines := make([]string, 0, len(rows)+1)

	fields := make([]string, len(columns))
	for i, c := range columns {
		fields[i] = Escape(c.Label)
	}
	lines = append(lines, strings.Join(fields, ","))

	for _, row := range rows {
		fields := make([]string, len(columns))
		for i, c := range columns {
			if c.GetValue == nil {
				continue
			}
			fields[i] = Escape(c.GetValue(row))
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	return strings.Join(lines, "\n")
}

// ExpenseColumns returns the default export columns. The effective amount is
// computed as of asOf.
func ExpenseColumns(asOf core.Date) []Column[core.ExpenseRecord] {
	return []Column[core.ExpenseRecord]{
		{Key: "date", Label: "Date", GetValue: func(r core.ExpenseRecord) string { return r.Date.String() }},
		{Key: "category", Label: "Category", GetValue: func(r core.ExpenseRecord) string { return string(r.Category) }},
		{Key: "description", Label: "Description", GetValue: func(r core.ExpenseRecord) string { return r.Description }},
		{Key: "amount", Label: "Amount", GetValue: func(r core.ExpenseRecord) string { return r.Amount.String() }},
		{Key: "recurring", Label: "Recurring", GetValue: func(r core.ExpenseRecord) string { return strconv.FormatBool(r.IsRecurring) }},
		{Key: "effectiveAmount", Label: "Effective Amount", GetValue: func(r core.ExpenseRecord) string {
			return core.EffectiveAmount(r, asOf).String()
		}},
	}
}

// Expenses renders records with the default columns.
func Expenses(records []core.ExpenseRecord, asOf core.Date) string {
	return CSV(records, ExpenseColumns(asOf))
}
