// Package memory is an in-process store.Store used by tests and the memory backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Store keeps every collection in maps guarded by one mutex. Transactions work on
// a copy of the state that replaces the live one on commit.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	accounts     map[string]core.Account
	categories   map[string]core.Category
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget
	insights     map[string]core.Insight
	recurring    map[string]core.RecurringTransaction
}

// Ensure interface conformance
var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		accounts:     map[string]core.Account{},
		categories:   map[string]core.Category{},
		transactions: map[string]core.Transaction{},
		budgets:      map[string]core.Budget{},
		insights:     map[string]core.Insight{},
		recurring:    map[string]core.RecurringTransaction{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.budgets {
		c.budgets[k] = v
	}
	for k, v := range s.insights {
		c.insights[k] = v
	}
	for k, v := range s.recurring {
		c.recurring[k] = v
	}
	return c
}

// InTx implements store.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &repo{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Close() error { return nil }

// do runs a single operation against the live state.
func (s *Store) do(fn func(r *repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{st: s.state})
}

// repo implements store.Repository over one state value without locking.
type repo struct {
	st *state
}

var _ store.Repository = (*repo)(nil)

// Accounts

func (r *repo) CreateAccount(_ context.Context, a *core.Account) error {
	for _, existing := range r.st.accounts {
		if existing.OwnerID == a.OwnerID && strings.EqualFold(existing.Name, a.Name) {
			return core.Conflictf("account %q already exists", a.Name)
		}
	}
	r.st.accounts[a.ID] = cloneAccount(*a)
	return nil
}

func (r *repo) GetAccount(_ context.Context, ownerID, id string) (*core.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return nil, core.NotFoundf("account %s", id)
	}
	out := cloneAccount(a)
	return &out, nil
}

func (r *repo) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	out := make([]core.Account, 0)
	for _, a := range r.st.accounts {
		if a.OwnerID == ownerID {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repo) UpdateAccount(_ context.Context, a *core.Account) error {
	cur, ok := r.st.accounts[a.ID]
	if !ok || cur.OwnerID != a.OwnerID {
		return core.NotFoundf("account %s", a.ID)
	}
	for id, existing := range r.st.accounts {
		if id != a.ID && existing.OwnerID == a.OwnerID && strings.EqualFold(existing.Name, a.Name) {
			return core.Conflictf("account %q already exists", a.Name)
		}
	}
	next := cloneAccount(*a)
	next.Balance = cur.Balance
	next.Type = cur.Type
	r.st.accounts[a.ID] = next
	return nil
}

func (r *repo) DeleteAccount(_ context.Context, ownerID, id string) error {
	a, ok := r.st.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.NotFoundf("account %s", id)
	}
	delete(r.st.accounts, id)
	return nil
}

func (r *repo) IncrementBalance(_ context.Context, ownerID, id string, delta decimal.Decimal) error {
	a, ok := r.st.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.NotFoundf("account %s", id)
	}
	if a.Balance == nil {
		return core.InvalidStatef("account %s does not track a balance", id)
	}
	next := a.Balance.Add(delta)
	if err := core.CheckBalance(id, next); err != nil {
		return err
	}
	a.Balance = &next
	a.UpdatedAt = time.Now().UTC()
	r.st.accounts[id] = a
	return nil
}

func (r *repo) SetBalance(_ context.Context, ownerID, id string, balance decimal.Decimal) error {
	a, ok := r.st.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.NotFoundf("account %s", id)
	}
	if a.Balance == nil {
		return core.InvalidStatef("account %s does not track a balance", id)
	}
	if err := core.CheckBalance(id, balance); err != nil {
		return err
	}
	a.Balance = &balance
	a.UpdatedAt = time.Now().UTC()
	r.st.accounts[id] = a
	return nil
}

// Categories

func (r *repo) CreateCategory(_ context.Context, c *core.Category) error {
	for _, existing := range r.st.categories {
		if existing.OwnerID == c.OwnerID && strings.EqualFold(existing.Name, c.Name) {
			return core.Conflictf("category %q already exists", c.Name)
		}
	}
	r.st.categories[c.ID] = *c
	return nil
}

func (r *repo) GetCategory(_ context.Context, ownerID, id string) (*core.Category, error) {
	c, ok := r.st.categories[id]
	if !ok || c.OwnerID != ownerID {
		return nil, core.NotFoundf("category %s", id)
	}
	return &c, nil
}

func (r *repo) GetCategoryByName(_ context.Context, ownerID, name string) (*core.Category, error) {
	for _, c := range r.st.categories {
		if c.OwnerID == ownerID && strings.EqualFold(c.Name, name) {
			out := c
			return &out, nil
		}
	}
	return nil, core.NotFoundf("category %q", name)
}

func (r *repo) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	out := make([]core.Category, 0)
	for _, c := range r.st.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repo) DeleteCategory(_ context.Context, ownerID, id string) (int, error) {
	c, ok := r.st.categories[id]
	if !ok || c.OwnerID != ownerID {
		return 0, core.NotFoundf("category %s", id)
	}
	detached := 0
	for tid, t := range r.st.transactions {
		if t.OwnerID == ownerID && core.Deref(t.CategoryID) == id {
			t.CategoryID = nil
			r.st.transactions[tid] = t
			detached++
		}
	}
	delete(r.st.categories, id)
	return detached, nil
}

// Transactions

func (r *repo) InsertTransaction(_ context.Context, t *core.Transaction) error {
	if _, exists := r.st.transactions[t.ID]; exists {
		return core.Conflictf("transaction %s already exists", t.ID)
	}
	r.st.transactions[t.ID] = cloneTransaction(*t)
	return nil
}

func (r *repo) GetTransaction(_ context.Context, ownerID, id string) (*core.Transaction, error) {
	t, ok := r.st.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return nil, core.NotFoundf("transaction %s", id)
	}
	out := cloneTransaction(t)
	return &out, nil
}

func (r *repo) UpdateTransaction(_ context.Context, t *core.Transaction) error {
	cur, ok := r.st.transactions[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return core.NotFoundf("transaction %s", t.ID)
	}
	r.st.transactions[t.ID] = cloneTransaction(*t)
	return nil
}

func (r *repo) DeleteTransaction(_ context.Context, ownerID, id string) error {
	t, ok := r.st.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return core.NotFoundf("transaction %s", id)
	}
	delete(r.st.transactions, id)
	return nil
}

func (r *repo) ListTransactions(_ context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0)
	for _, t := range r.st.transactions {
		if t.OwnerID == ownerID && f.Matches(&t) {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return store.LessTransaction(&out[i], &out[j]) })
	return out, nil
}

func (r *repo) SumTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (decimal.Decimal, error) {
	rows, _ := r.ListTransactions(ctx, ownerID, f)
	sum := decimal.Zero
	for _, t := range rows {
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (r *repo) CountTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (int, error) {
	rows, _ := r.ListTransactions(ctx, ownerID, f)
	return len(rows), nil
}

// Budgets

func (r *repo) budgetNameTaken(b *core.Budget) bool {
	for id, existing := range r.st.budgets {
		if id != b.ID && existing.OwnerID == b.OwnerID && existing.Period == b.Period && strings.EqualFold(existing.Name, b.Name) {
			return true
		}
	}
	return false
}

func (r *repo) CreateBudget(_ context.Context, b *core.Budget) error {
	if r.budgetNameTaken(b) {
		return core.Conflictf("%s budget %q already exists", b.Period, b.Name)
	}
	r.st.budgets[b.ID] = *b
	return nil
}

func (r *repo) GetBudget(_ context.Context, ownerID, id string) (*core.Budget, error) {
	b, ok := r.st.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return nil, core.NotFoundf("budget %s", id)
	}
	return &b, nil
}

func (r *repo) ListBudgets(_ context.Context, ownerID string, f store.BudgetFilter) ([]core.Budget, error) {
	out := make([]core.Budget, 0)
	for _, b := range r.st.budgets {
		if b.OwnerID == ownerID && f.Matches(&b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}

func (r *repo) UpdateBudget(_ context.Context, b *core.Budget) error {
	cur, ok := r.st.budgets[b.ID]
	if !ok || cur.OwnerID != b.OwnerID {
		return core.NotFoundf("budget %s", b.ID)
	}
	if r.budgetNameTaken(b) {
		return core.Conflictf("%s budget %q already exists", b.Period, b.Name)
	}
	r.st.budgets[b.ID] = *b
	return nil
}

func (r *repo) DeleteBudget(_ context.Context, ownerID, id string) error {
	b, ok := r.st.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.NotFoundf("budget %s", id)
	}
	delete(r.st.budgets, id)
	return nil
}

// Insights

func (r *repo) GetInsightByHash(_ context.Context, ownerID, hash string) (*core.Insight, error) {
	for _, in := range r.st.insights {
		if in.OwnerID == ownerID && in.Hash == hash {
			out := in
			return &out, nil
		}
	}
	return nil, core.NotFoundf("insight %s", hash)
}

func (r *repo) SaveInsight(_ context.Context, in *core.Insight) error {
	r.st.insights[in.ID] = *in
	return nil
}

func (r *repo) PruneInsights(_ context.Context, ownerID string, keep int) (int, error) {
	var owned []core.Insight
	for _, in := range r.st.insights {
		if in.OwnerID == ownerID {
			owned = append(owned, in)
		}
	}
	if len(owned) <= keep {
		return 0, nil
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})
	for _, in := range owned[keep:] {
		delete(r.st.insights, in.ID)
	}
	return len(owned) - keep, nil
}

// Recurring

func (r *repo) CreateRecurring(_ context.Context, rt *core.RecurringTransaction) error {
	r.st.recurring[rt.ID] = *rt
	return nil
}

func (r *repo) GetRecurring(_ context.Context, ownerID, id string) (*core.RecurringTransaction, error) {
	rt, ok := r.st.recurring[id]
	if !ok || rt.OwnerID != ownerID {
		return nil, core.NotFoundf("recurring transaction %s", id)
	}
	return &rt, nil
}

func (r *repo) ListRecurring(_ context.Context, ownerID string) ([]core.RecurringTransaction, error) {
	out := make([]core.RecurringTransaction, 0)
	for _, rt := range r.st.recurring {
		if rt.OwnerID == ownerID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (r *repo) DeleteRecurring(_ context.Context, ownerID, id string) error {
	rt, ok := r.st.recurring[id]
	if !ok || rt.OwnerID != ownerID {
		return core.NotFoundf("recurring transaction %s", id)
	}
	delete(r.st.recurring, id)
	return nil
}

func (r *repo) MarkRecurringExecuted(_ context.Context, ownerID, id string, at time.Time) error {
	rt, ok := r.st.recurring[id]
	if !ok || rt.OwnerID != ownerID {
		return core.NotFoundf("recurring transaction %s", id)
	}
	at = at.UTC()
	rt.LastExecution = &at
	r.st.recurring[id] = rt
	return nil
}

func (r *repo) ListActiveRecurring(_ context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	out := make([]core.RecurringTransaction, 0)
	for _, rt := range r.st.recurring {
		if rt.StartDate.After(now) {
			continue
		}
		if rt.EndDate != nil && rt.EndDate.Before(now) {
			continue
		}
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneAccount(a core.Account) core.Account {
	if a.Balance != nil {
		a.Balance = core.Ptr(*a.Balance)
	}
	if a.CreditLimit != nil {
		a.CreditLimit = core.Ptr(*a.CreditLimit)
	}
	if a.StatementDate != nil {
		a.StatementDate = core.Ptr(*a.StatementDate)
	}
	if a.DueDate != nil {
		a.DueDate = core.Ptr(*a.DueDate)
	}
	return a
}

func cloneTransaction(t core.Transaction) core.Transaction {
	for _, p := range []**string{&t.CategoryID, &t.AccountID, &t.FromAccountID, &t.ToAccountID, &t.TransferGroupID, &t.RecurringID} {
		if *p != nil {
			*p = core.Ptr(**p)
		}
	}
	return t
}
