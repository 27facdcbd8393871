package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs a group of repository calls as one unit of work.
// Repositories must be called with the ctx handed to fn.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MongoTxRunner runs fn inside a MongoDB transaction. Transactions need a replica set,
// so when disabled fn runs directly and each repository call stays individually atomic.
type MongoTxRunner struct {
	client  *mongo.Client
	enabled bool
}

// NewMongoTxRunner creates a new MongoTxRunner
func NewMongoTxRunner(client *mongo.Client, enabled bool) *MongoTxRunner {
	return &MongoTxRunner{client: client, enabled: enabled}
}

func (r *MongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.enabled {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
