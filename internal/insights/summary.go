package insights

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// CategorySpend is the expense total of one category.
type CategorySpend struct {
	Name   string
	Amount decimal.Decimal
}

// Summary is the aggregate view of a transaction set that providers turn into
// advice.
type Summary struct {
	From         time.Time
	To           time.Time
	Transactions int
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	ByCategory   []CategorySpend
}

// Net is income minus expenses.
func (s Summary) Net() decimal.Decimal { return s.Income.Sub(s.Expenses) }

// Summarize aggregates rows. Transfers move money between the owner's own
// accounts and are ignored. categories maps ids to names.
func Summarize(rows []core.Transaction, categories map[string]string) Summary {
	s := Summary{Income: decimal.Zero, Expenses: decimal.Zero}
	byCat := map[string]decimal.Decimal{}

	for _, t := range rows {
		if s.From.IsZero() || t.Date.Before(s.From) {
			s.From = t.Date
		}
		if t.Date.After(s.To) {
			s.To = t.Date
		}
		switch t.Type {
		case core.TypeIncome:
			s.Income = s.Income.Add(t.Amount.Abs())
		case core.TypeExpense:
			s.Expenses = s.Expenses.Add(t.Amount.Abs())
			name := "Uncategorized"
			if t.CategoryID != nil {
				if n, ok := categories[*t.CategoryID]; ok {
					name = n
				}
			}
			byCat[name] = byCat[name].Add(t.Amount.Abs())
		default:
			continue
		}
		s.Transactions++
	}

	for name, amt := range byCat {
		s.ByCategory = append(s.ByCategory, CategorySpend{Name: name, Amount: amt})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Amount.Cmp(s.ByCategory[j].Amount); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})
	return s
}

// Hash fingerprints a transaction set. Any create, edit or delete changes it.
func Hash(rows []core.Transaction) string {
	h := sha256.New()
	for _, t := range rows {
		fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s\n",
			t.ID, t.Type, t.Amount.StringFixed(core.AmountScale), t.Date.UnixMilli(),
			core.Deref(t.CategoryID), core.Deref(t.AccountID))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Prompt renders s as the instruction sent to a language model.
func Prompt(s Summary) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Based on the summary below, give three short, ")
	b.WriteString("concrete recommendations to improve the user's budget. Answer in plain text.\n\n")
	fmt.Fprintf(&b, "Period: %s to %s\n", s.From.Format(time.DateOnly), s.To.Format(time.DateOnly))
	fmt.Fprintf(&b, "Transactions: %d\n", s.Transactions)
	fmt.Fprintf(&b, "Total income: %s\n", s.Income.StringFixed(core.AmountScale))
	fmt.Fprintf(&b, "Total expenses: %s\n", s.Expenses.StringFixed(core.AmountScale))
	fmt.Fprintf(&b, "Net: %s\n", s.Net().StringFixed(core.AmountScale))
	if len(s.ByCategory) > 0 {
		b.WriteString("\nExpenses by category:\n")
		for _, c := range s.ByCategory {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Amount.StringFixed(core.AmountScale))
		}
	}
	return b.String()
}
