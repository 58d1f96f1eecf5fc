package core

import (
	"reflect"
	"testing"
)

func TestMonthsActive(t *testing.T) {
	tests := []struct {
		name  string
		start Date
		asOf  Date
		want  int
	}{
		{"same month", NewDate(2024, 1, 1), NewDate(2024, 1, 31), 1},
		{"three months later", NewDate(2024, 1, 1), NewDate(2024, 4, 15), 4},
		{"day ignored", NewDate(2024, 1, 31), NewDate(2024, 2, 1), 2},
		{"across years", NewDate(2023, 11, 20), NewDate(2024, 2, 1), 4},
		{"future start floors to one", NewDate(2025, 6, 1), NewDate(2024, 1, 1), 1},
		{"previous month start in future year", NewDate(2024, 12, 1), NewDate(2024, 11, 30), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthsActive(tt.start, tt.asOf); got != tt.want {
				t.Errorf("MonthsActive() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectiveAmount(t *testing.T) {
	asOf := NewDate(2024, 4, 15)
	oneOff := ExpenseRecord{Amount: Money{Cents: 12345}, Date: NewDate(2020, 1, 1)}
	if got := EffectiveAmount(oneOff, asOf); got != oneOff.Amount {
		t.Fatalf("non-recurring amount changed: %v", got)
	}

	recurring := ExpenseRecord{Amount: Money{Cents: 5000}, Date: NewDate(2024, 1, 1), IsRecurring: true}
	if got := EffectiveAmount(recurring, asOf); got.Cents != 20000 {
		t.Fatalf("expected 20000, got %d", got.Cents)
	}
	if recurring.Amount.Cents != 5000 {
		t.Fatalf("stored per-month amount overwritten")
	}

	sameMonth := ExpenseRecord{Amount: Money{Cents: 5000}, Date: NewDate(2024, 4, 30), IsRecurring: true}
	if got := EffectiveAmount(sameMonth, asOf); got.Cents != 5000 {
		t.Fatalf("expected one month of accrual, got %d", got.Cents)
	}
}

func TestEffectiveAmountAtBoundsDoesNotOverflow(t *testing.T) {
	r := ExpenseRecord{Amount: Money{Cents: MaxCents}, Date: NewDate(1, 1, 1), IsRecurring: true}
	asOf := NewDate(9999, 12, 31)

	got := EffectiveAmount(r, asOf)
	months := int64(MonthsActive(r.Date, asOf))
	if got.Cents <= 0 || got.Cents != MaxCents*months {
		t.Fatalf("EffectiveAmount = %d, want %d", got.Cents, MaxCents*months)
	}

	amount := ParseAmount("1e30")
	if amount.Cents != 0 {
		t.Fatalf("out-of-range amount parsed to %d", amount.Cents)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, NewDate(2024, 1, 1))
	if s.Total.Cents != 0 || s.RecurringMonthly.Cents != 0 || len(s.ByCategory) != 0 {
		t.Fatalf("unexpected summary for empty input: %+v", s)
	}
}

func TestAggregateScenarios(t *testing.T) {
	tests := []struct {
		name          string
		records       []ExpenseRecord
		asOf          Date
		wantTotal     int64
		wantByCat     []CategoryAmount
		wantRecurring int64
	}{
		{
			name: "one-off shipping",
			records: []ExpenseRecord{
				{Amount: Money{Cents: 10000}, Date: NewDate(2024, 1, 15), Category: Shipping},
			},
			asOf:      NewDate(2024, 1, 20),
			wantTotal: 10000,
			wantByCat: []CategoryAmount{{Shipping, Money{Cents: 10000}}},
		},
		{
			name: "recurring software accrues four months",
			records: []ExpenseRecord{
				{Amount: Money{Cents: 5000}, Date: NewDate(2024, 1, 1), Category: Software, IsRecurring: true},
			},
			asOf:          NewDate(2024, 4, 15),
			wantTotal:     20000,
			wantByCat:     []CategoryAmount{{Software, Money{Cents: 20000}}},
			wantRecurring: 5000,
		},
		{
			name: "mixed records share one bucket",
			records: []ExpenseRecord{
				{Amount: Money{Cents: 2000}, Date: NewDate(2024, 2, 1), Category: Marketing, IsRecurring: true},
				{Amount: Money{Cents: 1550}, Date: NewDate(2024, 3, 3), Category: Marketing},
			},
			asOf:          NewDate(2024, 3, 10),
			wantTotal:     5550,
			wantByCat:     []CategoryAmount{{Marketing, Money{Cents: 5550}}},
			wantRecurring: 2000,
		},
		{
			name: "categories keep first-seen order",
			records: []ExpenseRecord{
				{Amount: Money{Cents: 100}, Date: NewDate(2024, 1, 1), Category: Travel},
				{Amount: Money{Cents: 200}, Date: NewDate(2024, 1, 1), Category: Fees},
				{Amount: Money{Cents: 300}, Date: NewDate(2024, 1, 1), Category: Travel},
			},
			asOf:      NewDate(2024, 1, 1),
			wantTotal: 600,
			wantByCat: []CategoryAmount{{Travel, Money{Cents: 400}}, {Fees, Money{Cents: 200}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(tt.records, tt.asOf)
			if s.Total.Cents != tt.wantTotal {
				t.Errorf("Total = %d, want %d", s.Total.Cents, tt.wantTotal)
			}
			if !reflect.DeepEqual(s.ByCategory, tt.wantByCat) {
				t.Errorf("ByCategory = %v, want %v", s.ByCategory, tt.wantByCat)
			}
			if s.RecurringMonthly.Cents != tt.wantRecurring {
				t.Errorf("RecurringMonthly = %d, want %d", s.RecurringMonthly.Cents, tt.wantRecurring)
			}

			var sum int64
			for _, r := range tt.records {
				sum += EffectiveAmount(r, tt.asOf).Cents
			}
			if sum != s.Total.Cents {
				t.Errorf("Total %d differs from sum of effective amounts %d", s.Total.Cents, sum)
			}

			again := Aggregate(tt.records, tt.asOf)
			if !reflect.DeepEqual(s, again) {
				t.Errorf("Aggregate not idempotent: %+v vs %+v", s, again)
			}
		})
	}
}

func TestAggregateRecurringMonthlyIgnoresDuration(t *testing.T) {
	records := []ExpenseRecord{
		{Amount: Money{Cents: 1000}, Date: NewDate(2020, 1, 1), Category: Software, IsRecurring: true},
		{Amount: Money{Cents: 2500}, Date: NewDate(2024, 5, 1), Category: Warehouse, IsRecurring: true},
		{Amount: Money{Cents: 9999}, Date: NewDate(2024, 5, 1), Category: Fees},
	}
	s := Aggregate(records, NewDate(2024, 5, 20))
	if s.RecurringMonthly.Cents != 3500 {
		t.Fatalf("RecurringMonthly = %d, want 3500", s.RecurringMonthly.Cents)
	}
	if len(s.ByCategory) != 3 {
		t.Fatalf("categories without records must be omitted: %+v", s.ByCategory)
	}
	if got := s.ByCategory[0]; got.Category != Software || got.Amount.Cents != 1000*53 {
		t.Fatalf("software total = %+v, want %d", got, 1000*53)
	}
}

func TestNetProfit(t *testing.T) {
	tests := []struct {
		revenue, cost, expenses, want int64
	}{
		{100000, 30000, 20000, 50000},
		{10000, 5000, 20000, -15000},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		got := NetProfit(Money{Cents: tt.revenue}, Money{Cents: tt.cost}, Money{Cents: tt.expenses})
		if got.Cents != tt.want {
			t.Errorf("NetProfit(%d, %d, %d) = %d, want %d", tt.revenue, tt.cost, tt.expenses, got.Cents, tt.want)
		}
	}

	report := Profit(Money{Cents: 100000}, Money{Cents: 30000}, Money{Cents: 20000})
	if report.NetProfit.Cents != 50000 || report.TotalExpenses.Cents != 20000 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
