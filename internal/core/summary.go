package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// Summary is the aggregate view of an owner's expenses as of a given date.
type Summary struct {
	AsOf  Date
	Total Money
	// ByCategory holds only categories that have records, in order of
	// first appearance in the input.
	ByCategory       []CategoryAmount
	RecurringMonthly Money
}

// ProfitReport combines externally supplied revenue figures with the expense total.
type ProfitReport struct {
	TotalRevenue     Money
	TotalProductCost Money
	TotalExpenses    Money
	NetProfit        Money
}
