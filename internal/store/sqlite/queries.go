package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

var _ store.Repository = (*Queries)(nil)

// Accounts

const accountColumns = `id, owner_id, name, type, balance_cents, credit_limit_cents, statement_date, due_date, created_at, updated_at`

func scanAccount(s rowScanner) (core.Account, error) {
	var (
		a                    core.Account
		typ                  string
		balance, limit       sql.NullInt64
		statement, due       sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := s.Scan(&a.ID, &a.OwnerID, &a.Name, &typ, &balance, &limit, &statement, &due, &createdAt, &updatedAt); err != nil {
		return a, err
	}
	a.Type = core.AccountType(typ)
	a.Balance = centsPtr(balance)
	a.CreditLimit = centsPtr(limit)
	a.StatementDate = intPtr(statement)
	a.DueDate = intPtr(due)
	a.CreatedAt = fromNanos(createdAt)
	a.UpdatedAt = fromNanos(updatedAt)
	return a, nil
}

func (q *Queries) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, string(a.Type), nullCents(a.Balance), nullCents(a.CreditLimit),
		nullInt(a.StatementDate), nullInt(a.DueDate), toNanos(a.CreatedAt), toNanos(a.UpdatedAt))
	if isUniqueViolation(err) {
		return core.Conflictf("account %q already exists", a.Name)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, ownerID, id string) (*core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? AND id = ?`, ownerID, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account %s", id)
	}
	return &a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateAccount(ctx context.Context, a *core.Account) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, credit_limit_cents = ?, statement_date = ?, due_date = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		a.Name, nullCents(a.CreditLimit), nullInt(a.StatementDate), nullInt(a.DueDate), toNanos(a.UpdatedAt),
		a.OwnerID, a.ID)
	if isUniqueViolation(err) {
		return core.Conflictf("account %q already exists", a.Name)
	}
	return expectOne(res, err, "account %s", a.ID)
}

func (q *Queries) DeleteAccount(ctx context.Context, ownerID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE owner_id = ? AND id = ?`, ownerID, id)
	return expectOne(res, err, "account %s", id)
}

func (q *Queries) IncrementBalance(ctx context.Context, ownerID, id string, delta decimal.Decimal) error {
	if err := core.CheckBalance(id, delta); err != nil {
		return err
	}
	maxCents := core.ToCents(core.MaxBalance)
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?1, updated_at = ?2
		 WHERE owner_id = ?3 AND id = ?4 AND balance_cents IS NOT NULL
		   AND ABS(balance_cents + ?1) <= ?5`,
		core.ToCents(delta), toNanos(time.Now()), ownerID, id, maxCents)
	return q.balanceResult(ctx, res, err, ownerID, id, delta)
}

func (q *Queries) SetBalance(ctx context.Context, ownerID, id string, balance decimal.Decimal) error {
	if err := core.CheckBalance(id, balance); err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ? AND balance_cents IS NOT NULL`,
		core.ToCents(balance), toNanos(time.Now()), ownerID, id)
	return q.balanceResult(ctx, res, err, ownerID, id, decimal.Zero)
}

// balanceResult tells a missing account apart from one without a balance or
// one whose balance would leave the representable range.
func (q *Queries) balanceResult(ctx context.Context, res sql.Result, err error, ownerID, id string, delta decimal.Decimal) error {
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	acc, err := q.GetAccount(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if acc.Balance != nil {
		if err := core.CheckBalance(id, acc.Balance.Add(delta)); err != nil {
			return err
		}
	}
	return core.InvalidStatef("account %s does not track a balance", id)
}

// Categories

func (q *Queries) CreateCategory(ctx context.Context, c *core.Category) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, toNanos(c.CreatedAt))
	if isUniqueViolation(err) {
		return core.Conflictf("category %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c         core.Category
		createdAt int64
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &createdAt); err != nil {
		return c, err
	}
	c.CreatedAt = fromNanos(createdAt)
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, ownerID, id string) (*core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM categories WHERE owner_id = ? AND id = ?`, ownerID, id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category %s", id)
	}
	return &c, nil
}

func (q *Queries) GetCategoryByName(ctx context.Context, ownerID, name string) (*core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM categories WHERE owner_id = ? AND name = ? COLLATE NOCASE`,
		ownerID, name)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category %q", name)
	}
	return &c, nil
}

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at FROM categories WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteCategory(ctx context.Context, ownerID, id string) (int, error) {
	if _, err := q.GetCategory(ctx, ownerID, id); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = NULL WHERE owner_id = ? AND category_id = ?`, ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("detach category: %w", err)
	}
	detached, _ := res.RowsAffected()
	if _, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE owner_id = ? AND id = ?`, ownerID, id); err != nil {
		return 0, fmt.Errorf("delete category: %w", err)
	}
	return int(detached), nil
}

// Transactions

const transactionColumns = `id, owner_id, type, amount_cents, date, description, category_id, account_id,
	from_account_id, to_account_id, transfer_group_id, leg, recurring_id, created_at, updated_at`

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t                        core.Transaction
		typ, leg                 string
		amount, date             int64
		category, account        sql.NullString
		from, to, group, recurID sql.NullString
		createdAt, updatedAt     int64
	)
	err := s.Scan(&t.ID, &t.OwnerID, &typ, &amount, &date, &t.Description, &category, &account,
		&from, &to, &group, &leg, &recurID, &createdAt, &updatedAt)
	if err != nil {
		return t, err
	}
	t.Type = core.TransactionType(typ)
	t.Leg = core.Leg(leg)
	t.Amount = core.FromCents(amount)
	t.Date = fromMillis(date)
	t.CategoryID = stringPtr(category)
	t.AccountID = stringPtr(account)
	t.FromAccountID = stringPtr(from)
	t.ToAccountID = stringPtr(to)
	t.TransferGroupID = stringPtr(group)
	t.RecurringID = stringPtr(recurID)
	t.CreatedAt = fromNanos(createdAt)
	t.UpdatedAt = fromNanos(updatedAt)
	return t, nil
}

func (q *Queries) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, string(t.Type), core.ToCents(t.Amount), toMillis(t.Date), t.Description,
		nullString(t.CategoryID), nullString(t.AccountID), nullString(t.FromAccountID), nullString(t.ToAccountID),
		nullString(t.TransferGroupID), string(t.Leg), nullString(t.RecurringID), toNanos(t.CreatedAt), toNanos(t.UpdatedAt))
	if isUniqueViolation(err) {
		return core.Conflictf("transaction %s already exists", t.ID)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction %s", id)
	}
	return &t, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount_cents = ?, date = ?, description = ?, category_id = ?,
		 account_id = ?, from_account_id = ?, to_account_id = ?, transfer_group_id = ?, leg = ?,
		 recurring_id = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		string(t.Type), core.ToCents(t.Amount), toMillis(t.Date), t.Description, nullString(t.CategoryID),
		nullString(t.AccountID), nullString(t.FromAccountID), nullString(t.ToAccountID),
		nullString(t.TransferGroupID), string(t.Leg), nullString(t.RecurringID), toNanos(t.UpdatedAt),
		t.OwnerID, t.ID)
	return expectOne(res, err, "transaction %s", t.ID)
}

func (q *Queries) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	return expectOne(res, err, "transaction %s", id)
}

// transactionWhere renders f as a WHERE clause equivalent to TransactionFilter.Matches.
func transactionWhere(ownerID string, f store.TransactionFilter) (string, []interface{}) {
	var sb strings.Builder
	args := []interface{}{ownerID}
	sb.WriteString(" WHERE owner_id = ?")
	if f.Type != "" {
		sb.WriteString(" AND type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != "" {
		sb.WriteString(" AND category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AccountID != "" {
		sb.WriteString(" AND (account_id = ? OR from_account_id = ? OR to_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID, f.AccountID)
	}
	if f.TransferGroupID != "" {
		sb.WriteString(" AND transfer_group_id = ?")
		args = append(args, f.TransferGroupID)
	}
	if !f.From.IsZero() {
		sb.WriteString(" AND date >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		sb.WriteString(" AND date <= ?")
		args = append(args, toMillis(f.To))
	}
	return sb.String(), args
}

func (q *Queries) ListTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := transactionWhere(ownerID, f)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+where+` ORDER BY date, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) SumTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (decimal.Decimal, error) {
	where, args := transactionWhere(ownerID, f)
	var cents int64
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions`+where, args...).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return core.FromCents(cents), nil
}

func (q *Queries) CountTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (int, error) {
	where, args := transactionWhere(ownerID, f)
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// Budgets

const budgetColumns = `id, owner_id, name, category_id, amount_cents, period, start_date, end_date,
	warning_threshold, alert_threshold, is_active, created_at, updated_at`

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b                    core.Budget
		period               string
		amount, start, end   int64
		warning, alert       string
		createdAt, updatedAt int64
	)
	err := s.Scan(&b.ID, &b.OwnerID, &b.Name, &b.CategoryID, &amount, &period, &start, &end,
		&warning, &alert, &b.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return b, err
	}
	if b.WarningThreshold, err = decimal.NewFromString(warning); err != nil {
		return b, fmt.Errorf("parse warning threshold: %w", err)
	}
	if b.AlertThreshold, err = decimal.NewFromString(alert); err != nil {
		return b, fmt.Errorf("parse alert threshold: %w", err)
	}
	b.Amount = core.FromCents(amount)
	b.Period = core.Period(period)
	b.StartDate = fromMillis(start)
	b.EndDate = fromMillis(end)
	b.CreatedAt = fromNanos(createdAt)
	b.UpdatedAt = fromNanos(updatedAt)
	return b, nil
}

func (q *Queries) CreateBudget(ctx context.Context, b *core.Budget) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Name, b.CategoryID, core.ToCents(b.Amount), string(b.Period),
		toMillis(b.StartDate), toMillis(b.EndDate), b.WarningThreshold.String(), b.AlertThreshold.String(),
		b.IsActive, toNanos(b.CreatedAt), toNanos(b.UpdatedAt))
	if isUniqueViolation(err) {
		return core.Conflictf("%s budget %q already exists", b.Period, b.Name)
	}
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (q *Queries) GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? AND id = ?`, ownerID, id)
	b, err := scanBudget(row)
	if err != nil {
		return nil, notFound(err, "budget %s", id)
	}
	return &b, nil
}

func (q *Queries) ListBudgets(ctx context.Context, ownerID string, f store.BudgetFilter) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if f.ActiveOnly {
		query += ` AND is_active = 1`
	}
	if f.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	rows, err := q.db.QueryContext(ctx, query+` ORDER BY name, period`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateBudget(ctx context.Context, b *core.Budget) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET name = ?, category_id = ?, amount_cents = ?, period = ?, start_date = ?, end_date = ?,
		 warning_threshold = ?, alert_threshold = ?, is_active = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		b.Name, b.CategoryID, core.ToCents(b.Amount), string(b.Period), toMillis(b.StartDate), toMillis(b.EndDate),
		b.WarningThreshold.String(), b.AlertThreshold.String(), b.IsActive, toNanos(b.UpdatedAt),
		b.OwnerID, b.ID)
	if isUniqueViolation(err) {
		return core.Conflictf("%s budget %q already exists", b.Period, b.Name)
	}
	return expectOne(res, err, "budget %s", b.ID)
}

func (q *Queries) DeleteBudget(ctx context.Context, ownerID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE owner_id = ? AND id = ?`, ownerID, id)
	return expectOne(res, err, "budget %s", id)
}

// Insights

func (q *Queries) GetInsightByHash(ctx context.Context, ownerID, hash string) (*core.Insight, error) {
	var (
		in        core.Insight
		createdAt int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, owner_id, hash, content, created_at FROM insights
		 WHERE owner_id = ? AND hash = ? ORDER BY created_at DESC LIMIT 1`, ownerID, hash).
		Scan(&in.ID, &in.OwnerID, &in.Hash, &in.Content, &createdAt)
	if err != nil {
		return nil, notFound(err, "insight %s", hash)
	}
	in.CreatedAt = fromNanos(createdAt)
	return &in, nil
}

func (q *Queries) SaveInsight(ctx context.Context, in *core.Insight) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO insights (id, owner_id, hash, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.OwnerID, in.Hash, in.Content, toNanos(in.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

func (q *Queries) PruneInsights(ctx context.Context, ownerID string, keep int) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM insights WHERE owner_id = ? AND id NOT IN (
			SELECT id FROM insights WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`, ownerID, ownerID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune insights: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Recurring

const recurringColumns = `id, owner_id, type, amount_cents, account_id, category_id, description, every,
	start_date, end_date, last_execution`

func scanRecurring(s rowScanner) (core.RecurringTransaction, error) {
	var (
		rt            core.RecurringTransaction
		typ, every    string
		amount, start int64
		category      sql.NullString
		end, last     sql.NullInt64
	)
	err := s.Scan(&rt.ID, &rt.OwnerID, &typ, &amount, &rt.AccountID, &category, &rt.Description, &every,
		&start, &end, &last)
	if err != nil {
		return rt, err
	}
	rt.Type = core.TransactionType(typ)
	rt.Every = core.Repetition(every)
	rt.Amount = core.FromCents(amount)
	rt.CategoryID = stringPtr(category)
	rt.StartDate = fromMillis(start)
	rt.EndDate = millisPtr(end)
	rt.LastExecution = millisPtr(last)
	return rt, nil
}

func (q *Queries) CreateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.OwnerID, string(rt.Type), core.ToCents(rt.Amount), rt.AccountID, nullString(rt.CategoryID),
		rt.Description, string(rt.Every), toMillis(rt.StartDate), nullMillis(rt.EndDate), nullMillis(rt.LastExecution))
	if err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetRecurring(ctx context.Context, ownerID, id string) (*core.RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	rt, err := scanRecurring(row)
	if err != nil {
		return nil, notFound(err, "recurring transaction %s", id)
	}
	return &rt, nil
}

func (q *Queries) listRecurring(ctx context.Context, query string, args ...interface{}) ([]core.RecurringTransaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.RecurringTransaction, 0)
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (q *Queries) ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringTransaction, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE owner_id = ? ORDER BY description`, ownerID)
}

func (q *Queries) ListActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	ms := toMillis(now)
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions
		 WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?) ORDER BY id`, ms, ms)
}

func (q *Queries) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	return expectOne(res, err, "recurring transaction %s", id)
}

func (q *Queries) MarkRecurringExecuted(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_execution = ? WHERE owner_id = ? AND id = ?`,
		toMillis(at), ownerID, id)
	return expectOne(res, err, "recurring transaction %s", id)
}

// expectOne turns a zero-row write into a not-found error.
func expectOne(res sql.Result, err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf("write "+format+": %w", append(args, err)...)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf(format, args...)
	}
	return nil
}
