package export

import (
	"strings"
	"testing"

	"reseller/internal/core"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Parcel labels", "Parcel labels"},
		{"empty", "", ""},
		{"comma", "boxes, tape", `"boxes, tape"`},
		{"quote", `12" mailer`, `"12"" mailer"`},
		{"newline", "line1\nline2", "\"line1\nline2\""},
		{"carriage return", "a\rb", "\"a\rb\""},
		{"leading space kept bare", " padded", " padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCSVColumnWithoutValueIsEmpty(t *testing.T) {
	type row struct{ name string }
	columns := []Column[row]{
		{Key: "name", Label: "Name", GetValue: func(r row) string { return r.name }},
		{Key: "notes", Label: "Notes"},
	}

	got := CSV([]row{{"tape"}, {"labels, thermal"}}, columns)
	want := "Name,Notes\ntape,\n\"labels, thermal\","
	if got != want {
		t.Errorf("CSV() = %q, want %q", got, want)
	}

	if got := CSV([]row{{"tape"}}, []Column[row]{{Key: "a", Label: "A"}}); got != "A\n" {
		t.Errorf("CSV() single empty column = %q, want %q", got, "A\n")
	}
}

func TestCategoryValuesNeedNoEscaping(t *testing.T) {
	for _, c := range core.Categories() {
		if got := Escape(string(c)); got != string(c) {
			t.Errorf("Escape(%q) = %q", c, got)
		}
	}
}

func TestExpenses(t *testing.T) {
	asOf := core.NewDate(2024, 3, 15)
	records := []core.ExpenseRecord{
		{
			Category:    core.Software,
			Description: "Listing tool, pro plan",
			Amount:      core.Money{Cents: 2999},
			Date:        core.NewDate(2024, 1, 1),
			IsRecurring: true,
		},
		{
			Category:    core.Packaging,
			Description: `10" boxes`,
			Amount:      core.Money{Cents: 1250},
			Date:        core.NewDate(2024, 3, 2),
		},
	}

	got := Expenses(records, asOf)
	want := strings.Join([]string{
		"Date,Category,Description,Amount,Recurring,Effective Amount",
		`2024-01-01,software,"Listing tool, pro plan",29.99,true,89.97`,
		`2024-03-02,packaging,"10"" boxes",12.50,false,12.50`,
	}, "\n")

	if got != want {
		t.Errorf("Expenses() =\n%s\nwant\n%s", got, want)
	}
}

func TestCSVEmptyRowsWritesHeaderOnly(t *testing.T) {
	got := Expenses(nil, core.NewDate(2024, 1, 1))
	if strings.Contains(got, "\n") {
		t.Errorf("expected a single header line, got %q", got)
	}
}

func TestCSVCustomColumns(t *testing.T) {
	type row struct{ name string }
	cols := []Column[row]{
		{Key: "name", Label: "Name, full", GetValue: func(r row) string { return r.name }},
	}
	got := CSV([]row{{"a"}, {"b,c"}}, cols)
	want := "\"Name, full\"\na\n\"b,c\""
	if got != want {
		t.Errorf("CSV() = %q, want %q", got, want)
	}
}
