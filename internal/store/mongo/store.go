// Package mongo is the store.Store backed by MongoDB. Multi-document writes use
// session transactions, so the server must run as a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/store"
)

const (
	accountsCollection     = "accounts"
	categoriesCollection   = "categories"
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
	insightsCollection     = "insights"
	recurringCollection    = "recurring_transactions"
)

type Store struct {
	*repo
	client *mongo.Client
}

var _ store.Store = (*Store)(nil)

// Connect establishes a connection to MongoDB and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	slog.DebugContext(ctx, "Attempting to connect to MongoDB", "uri", uri)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.InfoContext(ctx, "Successfully established connection to MongoDB")
	return client, nil
}

// Open connects to uri and prepares the collections of database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := Connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	s := &Store{repo: &repo{db: client.Database(database)}, client: client}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		accountsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "name_key", Value: 1}}, Options: unique},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "name_key", Value: 1}}, Options: unique},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "category_id", Value: 1}, {Key: "type", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "transfer_group_id", Value: 1}}},
		},
		budgetsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "name_key", Value: 1}, {Key: "period", Value: 1}}, Options: unique},
		},
		insightsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "hash", Value: 1}}},
		},
		recurringCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// InTx implements store.Store. The driver may call fn more than once when the
// server reports a transient transaction error.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r store.Repository) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s.repo)
	})
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
