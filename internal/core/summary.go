package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusOnTrack    BudgetStatus = "on-track"
	StatusWarning    BudgetStatus = "warning"
	StatusAtLimit    BudgetStatus = "at-limit"
	StatusOverBudget BudgetStatus = "over-budget"
)

// BudgetStatus classifies spend against a budget limit.
type BudgetStatus string

// BudgetProgress is the spend-vs-limit view of one budget for its current period.
type BudgetProgress struct {
	Budget             Budget          `json:"budget"`
	CurrentPeriodStart time.Time       `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time       `json:"currentPeriodEnd"`
	TotalSpent         decimal.Decimal `json:"totalSpent"`
	PercentageSpent    decimal.Decimal `json:"percentageSpent"`
	Remaining          decimal.Decimal `json:"remaining"`
	Status             BudgetStatus    `json:"status"`
	IsCurrentlyActive  bool            `json:"isCurrentlyActive"`
}

// RecalculationResult reports what a full balance rebuild touched.
type RecalculationResult struct {
	AccountsUpdated       int `json:"accountsUpdated"`
	TransactionsProcessed int `json:"transactionsProcessed"`
}

var hundred = decimal.NewFromInt(100)

// ClassifyBudget computes percentage, status and remaining for a spend total.
// totalSpent follows the expense sign convention and is therefore <= 0.
func ClassifyBudget(b Budget, totalSpent decimal.Decimal) (pct decimal.Decimal, status BudgetStatus, remaining decimal.Decimal) {
	pct = totalSpent.Div(b.Amount).Abs().Mul(hundred)

	switch {
	case pct.GreaterThan(hundred):
		status = StatusOverBudget
	case pct.Equal(hundred):
		status = StatusAtLimit
	case pct.GreaterThanOrEqual(b.AlertThreshold):
		status = StatusWarning
	case pct.GreaterThanOrEqual(b.WarningThreshold):
		status = StatusWarning
	default:
		status = StatusOnTrack
	}

	remaining = decimal.Max(decimal.Zero, b.Amount.Add(totalSpent))
	return pct, status, remaining
}
