package core

// MonthsActive returns how many calendar months a recurring expense started on
// start has been accruing as of asOf, counting the current month. Only year and
// month are considered. The result is never below 1, so a start date in the
// future also counts as one month; it does not validate date ordering.
func MonthsActive(start, asOf Date) int {
	months := (asOf.Year()-start.Year())*12 + int(asOf.Month()) - int(start.Month()) + 1
	if months < 1 {
		return 1
	}
	return months
}

// EffectiveAmount is the amount a record contributes to totals as of asOf:
// the stored amount for one-time costs, the accrued amount for recurring ones.
func EffectiveAmount(r ExpenseRecord, asOf Date) Money {
	if !r.IsRecurring {
		return r.Amount
	}
	return r.Amount.Times(MonthsActive(r.Date, asOf))
}

// Aggregate computes totals over records as of asOf. It does not modify records.
func Aggregate(records []ExpenseRecord, asOf Date) Summary {
	s := Summary{AsOf: asOf, ByCategory: []CategoryAmount{}}
	index := make(map[Category]int)

	for _, r := range records {
		amount := EffectiveAmount(r, asOf)
		s.Total = s.Total.Add(amount)

		if i, ok := index[r.Category]; ok {
			s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(amount)
		} else {
			index[r.Category] = len(s.ByCategory)
			s.ByCategory = append(s.ByCategory, CategoryAmount{Category: r.Category, Amount: amount})
		}

		if r.IsRecurring {
			s.RecurringMonthly = s.RecurringMonthly.Add(r.Amount)
		}
	}

	return s
}

// NetProfit is revenue minus product cost minus expenses. Negative results are
// returned as is.
func NetProfit(totalRevenue, totalProductCost, totalExpenses Money) Money {
	return totalRevenue.Sub(totalProductCost).Sub(totalExpenses)
}

// Profit builds a ProfitReport around NetProfit.
func Profit(totalRevenue, totalProductCost, totalExpenses Money) ProfitReport {
	return ProfitReport{
		TotalRevenue:     totalRevenue,
		TotalProductCost: totalProductCost,
		TotalExpenses:    totalExpenses,
		NetProfit:        NetProfit(totalRevenue, totalProductCost, totalExpenses),
	}
}
