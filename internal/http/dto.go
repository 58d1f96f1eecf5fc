package http

import (
	"time"

	"reseller/internal/core"
	"reseller/internal/ledger"
)

// Response bodies. Amounts are decimal strings with two places, each with
// an integer cents companion.
type (
	expenseResponse struct {
		ID                   string `json:"id"`
		OwnerID              string `json:"ownerId"`
		Category             string `json:"category"`
		CategoryLabel        string `json:"categoryLabel"`
		Description          string `json:"description"`
		Amount               string `json:"amount"`
		AmountCents          int64  `json:"amountCents"`
		EffectiveAmount      string `json:"effectiveAmount"`
		EffectiveAmountCents int64  `json:"effectiveAmountCents"`
		Date                 string `json:"date"`
		IsRecurring          bool   `json:"isRecurring"`
		MonthsActive         int    `json:"monthsActive,omitempty"`
		CreatedAt            string `json:"createdAt"`
		UpdatedAt            string `json:"updatedAt"`
	}

	categoryAmountResponse struct {
		Category    string `json:"category"`
		Label       string `json:"label"`
		Amount      string `json:"amount"`
		AmountCents int64  `json:"amountCents"`
	}

	ledgerResponse struct {
		AsOf                  string                   `json:"asOf"`
		Loading               bool                     `json:"loading"`
		Error                 string                   `json:"error,omitempty"`
		Expenses              []expenseResponse        `json:"expenses"`
		TotalExpenses         string                   `json:"totalExpenses"`
		TotalExpensesCents    int64                    `json:"totalExpensesCents"`
		ExpensesByCategory    []categoryAmountResponse `json:"expensesByCategory"`
		RecurringMonthly      string                   `json:"recurringMonthly"`
		RecurringMonthlyCents int64                    `json:"recurringMonthlyCents"`
	}

	categoryResponse struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}

	profitResponse struct {
		AsOf                  string `json:"asOf"`
		TotalRevenue          string `json:"totalRevenue"`
		TotalRevenueCents     int64  `json:"totalRevenueCents"`
		TotalProductCost      string `json:"totalProductCost"`
		TotalProductCostCents int64  `json:"totalProductCostCents"`
		TotalExpenses         string `json:"totalExpenses"`
		TotalExpensesCents    int64  `json:"totalExpensesCents"`
		NetProfit             string `json:"netProfit"`
		NetProfitCents        int64  `json:"netProfitCents"`
	}
)

func toExpenseResponse(r core.ExpenseRecord, asOf core.Date) expenseResponse {
	effective := core.EffectiveAmount(r, asOf)
	resp := expenseResponse{
		ID:                   r.ID,
		OwnerID:              r.OwnerID,
		Category:             string(r.Category),
		CategoryLabel:        r.Category.Label(),
		Description:          r.Description,
		Amount:               r.Amount.String(),
		AmountCents:          r.Amount.Cents,
		EffectiveAmount:      effective.String(),
		EffectiveAmountCents: effective.Cents,
		Date:                 r.Date.String(),
		IsRecurring:          r.IsRecurring,
		CreatedAt:            r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.IsRecurring {
		resp.MonthsActive = core.MonthsActive(r.Date, asOf)
	}
	return resp
}

func toLedgerResponse(v ledger.View) ledgerResponse {
	resp := ledgerResponse{
		AsOf:                  v.Summary.AsOf.String(),
		Loading:               v.Loading,
		Expenses:              make([]expenseResponse, 0, len(v.Expenses)),
		TotalExpenses:         v.Summary.Total.String(),
		TotalExpensesCents:    v.Summary.Total.Cents,
		ExpensesByCategory:    make([]categoryAmountResponse, 0, len(v.Summary.ByCategory)),
		RecurringMonthly:      v.Summary.RecurringMonthly.String(),
		RecurringMonthlyCents: v.Summary.RecurringMonthly.Cents,
	}
	if v.Err != nil {
		resp.Error = "failed to load expenses"
	}
	for _, r := range v.Expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(r, v.Summary.AsOf))
	}
	for _, ca := range v.Summary.ByCategory {
		resp.ExpensesByCategory = append(resp.ExpensesByCategory, categoryAmountResponse{
			Category:    string(ca.Category),
			Label:       ca.Category.Label(),
			Amount:      ca.Amount.String(),
			AmountCents: ca.Amount.Cents,
		})
	}
	return resp
}

func toProfitResponse(p core.ProfitReport, asOf core.Date) profitResponse {
	return profitResponse{
		AsOf:                  asOf.String(),
		TotalRevenue:          p.TotalRevenue.String(),
		TotalRevenueCents:     p.TotalRevenue.Cents,
		TotalProductCost:      p.TotalProductCost.String(),
		TotalProductCostCents: p.TotalProductCost.Cents,
		TotalExpenses:         p.TotalExpenses.String(),
		TotalExpensesCents:    p.TotalExpenses.Cents,
		NetProfit:             p.NetProfit.String(),
		NetProfitCents:        p.NetProfit.Cents,
	}
}
