package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// repo implements store.Repository. Inside InTx ctx is a mongo.SessionContext,
// which enlists every call in the session transaction.
type repo struct {
	db *mongo.Database
}

var _ store.Repository = (*repo)(nil)

func (r *repo) col(name string) *mongo.Collection { return r.db.Collection(name) }

func byOwner(ownerID, id string) bson.M { return bson.M{"_id": id, "owner_id": ownerID} }

// Accounts

func (r *repo) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := r.col(accountsCollection).InsertOne(ctx, toAccountDoc(a))
	if mongo.IsDuplicateKeyError(err) {
		return core.Conflictf("account %q already exists", a.Name)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *repo) GetAccount(ctx context.Context, ownerID, id string) (*core.Account, error) {
	var d accountDoc
	err := r.col(accountsCollection).FindOne(ctx, byOwner(ownerID, id)).Decode(&d)
	if isNoDocuments(err) {
		return nil, core.NotFoundf("account %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	a := d.account()
	return &a, nil
}

func (r *repo) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	var docs []accountDoc
	if err := r.findAll(ctx, accountsCollection, bson.M{"owner_id": ownerID}, bson.D{{Key: "name", Value: 1}}, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.account())
	}
	return out, nil
}

func (r *repo) UpdateAccount(ctx context.Context, a *core.Account) error {
	set := bson.M{"name": a.Name, "name_key": nameKey(a.Name), "updated_at": a.UpdatedAt.UnixNano()}
	unset := bson.M{}
	optional := map[string]interface{}{
		"credit_limit_cents": centsOf(a.CreditLimit),
		"statement_date":     a.StatementDate,
		"due_date":           a.DueDate,
	}
	for field, v := range optional {
		switch v := v.(type) {
		case *int64:
			if v == nil {
				unset[field] = ""
			} else {
				set[field] = *v
			}
		case *int:
			if v == nil {
				unset[field] = ""
			} else {
				set[field] = *v
			}
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.col(accountsCollection).UpdateOne(ctx, byOwner(a.OwnerID, a.ID), update)
	if mongo.IsDuplicateKeyError(err) {
		return core.Conflictf("account %q already exists", a.Name)
	}
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.NotFoundf("account %s", a.ID)
	}
	return nil
}

func (r *repo) DeleteAccount(ctx context.Context, ownerID, id string) error {
	return r.deleteOne(ctx, accountsCollection, ownerID, id, "account")
}

func (r *repo) IncrementBalance(ctx context.Context, ownerID, id string, delta decimal.Decimal) error {
	if err := core.CheckBalance(id, delta); err != nil {
		return err
	}
	cents := core.ToCents(delta)
	maxCents := core.ToCents(core.MaxBalance)
	// Only match while the result stays inside the balance range.
	bounds := bson.M{"$gte": -maxCents - cents, "$lte": maxCents - cents}
	return r.updateBalance(ctx, ownerID, id, delta, bounds, bson.M{
		"$inc": bson.M{"balance_cents": cents},
		"$set": bson.M{"updated_at": time.Now().UnixNano()},
	})
}

func (r *repo) SetBalance(ctx context.Context, ownerID, id string, balance decimal.Decimal) error {
	if err := core.CheckBalance(id, balance); err != nil {
		return err
	}
	return r.updateBalance(ctx, ownerID, id, decimal.Zero, bson.M{"$exists": true}, bson.M{
		"$set": bson.M{"balance_cents": core.ToCents(balance), "updated_at": time.Now().UnixNano()},
	})
}

// updateBalance applies update to a balance-tracked account whose balance_cents
// matches cond.
func (r *repo) updateBalance(ctx context.Context, ownerID, id string, delta decimal.Decimal, cond, update bson.M) error {
	filter := byOwner(ownerID, id)
	filter["balance_cents"] = cond
	res, err := r.col(accountsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	acc, err := r.GetAccount(ctx, ownerID, id)
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

func (r *repo) CreateCategory(ctx context.Context, c *core.Category) error {
	_, err := r.col(categoriesCollection).InsertOne(ctx, toCategoryDoc(c))
	if mongo.IsDuplicateKeyError(err) {
		return core.Conflictf("category %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *repo) findCategory(ctx context.Context, filter bson.M, label string) (*core.Category, error) {
	var d categoryDoc
	err := r.col(categoriesCollection).FindOne(ctx, filter).Decode(&d)
	if isNoDocuments(err) {
		return nil, core.NotFoundf("category %s", label)
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	c := d.category()
	return &c, nil
}

func (r *repo) GetCategory(ctx context.Context, ownerID, id string) (*core.Category, error) {
	return r.findCategory(ctx, byOwner(ownerID, id), id)
}

func (r *repo) GetCategoryByName(ctx context.Context, ownerID, name string) (*core.Category, error) {
	return r.findCategory(ctx, bson.M{"owner_id": ownerID, "name_key": nameKey(name)}, fmt.Sprintf("%q", name))
}

func (r *repo) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	var docs []categoryDoc
	if err := r.findAll(ctx, categoriesCollection, bson.M{"owner_id": ownerID}, bson.D{{Key: "name", Value: 1}}, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.category())
	}
	return out, nil
}

func (r *repo) DeleteCategory(ctx context.Context, ownerID, id string) (int, error) {
	if _, err := r.GetCategory(ctx, ownerID, id); err != nil {
		return 0, err
	}
	res, err := r.col(transactionsCollection).UpdateMany(ctx,
		bson.M{"owner_id": ownerID, "category_id": id},
		bson.M{"$unset": bson.M{"category_id": ""}})
	if err != nil {
		return 0, fmt.Errorf("detach category: %w", err)
	}
	if err := r.deleteOne(ctx, categoriesCollection, ownerID, id, "category"); err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

// Transactions

// transactionFilter renders f as a query equivalent to TransactionFilter.Matches.
func transactionFilter(ownerID string, f store.TransactionFilter) bson.M {
	q := bson.M{"owner_id": ownerID}
	if f.Type != "" {
		q["type"] = string(f.Type)
	}
	if f.CategoryID != "" {
		q["category_id"] = f.CategoryID
	}
	if f.AccountID != "" {
		q["$or"] = bson.A{
			bson.M{"account_id": f.AccountID},
			bson.M{"from_account_id": f.AccountID},
			bson.M{"to_account_id": f.AccountID},
		}
	}
	if f.TransferGroupID != "" {
		q["transfer_group_id"] = f.TransferGroupID
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		date := bson.M{}
		if !f.From.IsZero() {
			date["$gte"] = f.From.UTC()
		}
		if !f.To.IsZero() {
			date["$lte"] = f.To.UTC()
		}
		q["date"] = date
	}
	return q
}

func (r *repo) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	_, err := r.col(transactionsCollection).InsertOne(ctx, toTransactionDoc(t))
	if mongo.IsDuplicateKeyError(err) {
		return core.Conflictf("transaction %s already exists", t.ID)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *repo) GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	var d transactionDoc
	err := r.col(transactionsCollection).FindOne(ctx, byOwner(ownerID, id)).Decode(&d)
	if isNoDocuments(err) {
		return nil, core.NotFoundf("transaction %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	t := d.transaction()
	return &t, nil
}

func (r *repo) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.col(transactionsCollection).ReplaceOne(ctx, byOwner(t.OwnerID, t.ID), toTransactionDoc(t))
	if err != nil {
		return fmt.Errorf("replace transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.NotFoundf("transaction %s", t.ID)
	}
	return nil
}

func (r *repo) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	return r.deleteOne(ctx, transactionsCollection, ownerID, id, "transaction")
}

var replayOrder = bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *repo) ListTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	var docs []transactionDoc
	if err := r.findAll(ctx, transactionsCollection, transactionFilter(ownerID, f), replayOrder, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.transaction())
	}
	return out, nil
}

func (r *repo) SumTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: transactionFilter(ownerID, f)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount_cents"}}}},
	}
	cur, err := r.col(transactionsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("decode sum: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return core.FromCents(rows[0].Total), nil
}

func (r *repo) CountTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (int, error) {
	n, err := r.col(transactionsCollection).CountDocuments(ctx, transactionFilter(ownerID, f))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

// Budgets

func (r *repo) CreateBudget(ctx context.Context, b *core.Budget) error {
	_, err := r.col(budgetsCollection).InsertOne(ctx, toBudgetDoc(b))
	if mongo.IsDuplicateKeyError(err) {
		return core.Conflictf("%s budget %q already exists", b.Period, b.Name)
	}
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *repo) GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	var d budgetDoc
	err := r.col(budgetsCollection).FindOne(ctx, byOwner(ownerID, id)).Decode(&d)
	if isNoDocuments(err) {
		return nil, core.NotFoundf("budget %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find budget: %w", err)
	}
	b, err := d.budget()
	if err != nil {
		return nil, fmt.Errorf("decode budget %s: %w", id, err)
	}
	return &b, nil
}

func (r *repo) ListBudgets(ctx context.Context, ownerID string, f store.BudgetFilter) ([]core.Budget, error) {
	q := bson.M{"owner_id": ownerID}
	if f.ActiveOnly {
		q["is_active"] = true
	}
	if f.CategoryID != "" {
		q["category_id"] = f.CategoryID
	}
	var docs []budgetDoc
	if err := r.findAll(ctx, budgetsCollection, q, bson.D{{Key: "name", Value: 1}, {Key: "period", Value: 1}}, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(docs))
	for _, d := range docs {
		b, err := d.budget()
		if err != nil {
			return nil, fmt.Errorf("decode budget %s: %w", d.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *repo) UpdateBudget(ctx context.Context, b *core.Budget) error {
	res, err := r.col(budgetsCollection).ReplaceOne(ctx, byOwner(b.OwnerID, b.ID), toBudgetDoc(b))
	if mongo.IsDuplicateKeyError(err) {
		return core.Conflictf("%s budget %q already exists", b.Period, b.Name)
	}
	if err != nil {
		return fmt.Errorf("replace budget: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.NotFoundf("budget %s", b.ID)
	}
	return nil
}

func (r *repo) DeleteBudget(ctx context.Context, ownerID, id string) error {
	return r.deleteOne(ctx, budgetsCollection, ownerID, id, "budget")
}

// Insights

func (r *repo) GetInsightByHash(ctx context.Context, ownerID, hash string) (*core.Insight, error) {
	var d insightDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := r.col(insightsCollection).FindOne(ctx, bson.M{"owner_id": ownerID, "hash": hash}, opts).Decode(&d)
	if isNoDocuments(err) {
		return nil, core.NotFoundf("insight %s", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("find insight: %w", err)
	}
	in := d.insight()
	return &in, nil
}

func (r *repo) SaveInsight(ctx context.Context, in *core.Insight) error {
	_, err := r.col(insightsCollection).InsertOne(ctx, insightDoc{
		ID: in.ID, OwnerID: in.OwnerID, Hash: in.Hash, Content: in.Content, CreatedAt: in.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

func (r *repo) PruneInsights(ctx context.Context, ownerID string, keep int) (int, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})
	cur, err := r.col(insightsCollection).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return 0, fmt.Errorf("find stale insights: %w", err)
	}
	var stale []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &stale); err != nil {
		return 0, fmt.Errorf("decode stale insights: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make(bson.A, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.ID)
	}
	res, err := r.col(insightsCollection).DeleteMany(ctx, bson.M{"owner_id": ownerID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("prune insights: %w", err)
	}
	return int(res.DeletedCount), nil
}

// Recurring

func (r *repo) CreateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	if _, err := r.col(recurringCollection).InsertOne(ctx, toRecurringDoc(rt)); err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	return nil
}

func (r *repo) GetRecurring(ctx context.Context, ownerID, id string) (*core.RecurringTransaction, error) {
	var d recurringDoc
	err := r.col(recurringCollection).FindOne(ctx, byOwner(ownerID, id)).Decode(&d)
	if isNoDocuments(err) {
		return nil, core.NotFoundf("recurring transaction %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find recurring transaction: %w", err)
	}
	rt := d.recurring()
	return &rt, nil
}

func (r *repo) listRecurring(ctx context.Context, filter bson.M, sort bson.D) ([]core.RecurringTransaction, error) {
	var docs []recurringDoc
	if err := r.findAll(ctx, recurringCollection, filter, sort, &docs); err != nil {
		return nil, err
	}
	out := make([]core.RecurringTransaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.recurring())
	}
	return out, nil
}

func (r *repo) ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringTransaction, error) {
	return r.listRecurring(ctx, bson.M{"owner_id": ownerID}, bson.D{{Key: "description", Value: 1}})
}

func (r *repo) ListActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	now = now.UTC()
	return r.listRecurring(ctx, bson.M{
		"start_date": bson.M{"$lte": now},
		"$or":        bson.A{bson.M{"end_date": nil}, bson.M{"end_date": bson.M{"$gte": now}}},
	}, bson.D{{Key: "_id", Value: 1}})
}

func (r *repo) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	return r.deleteOne(ctx, recurringCollection, ownerID, id, "recurring transaction")
}

func (r *repo) MarkRecurringExecuted(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := r.col(recurringCollection).UpdateOne(ctx, byOwner(ownerID, id),
		bson.M{"$set": bson.M{"last_execution": at.UTC()}})
	if err != nil {
		return fmt.Errorf("mark recurring transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.NotFoundf("recurring transaction %s", id)
	}
	return nil
}

// helpers

func (r *repo) findAll(ctx context.Context, collection string, filter bson.M, sort bson.D, out interface{}) error {
	cur, err := r.col(collection).Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (r *repo) deleteOne(ctx context.Context, collection, ownerID, id, label string) error {
	res, err := r.col(collection).DeleteOne(ctx, byOwner(ownerID, id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", label, err)
	}
	if res.DeletedCount == 0 {
		return core.NotFoundf("%s %s", label, id)
	}
	return nil
}
