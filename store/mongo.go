package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sentinel errors shared by every store implementation.
var (
	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict means the document exists but the conditional update's
	// state filter did not match, i.e. another writer got there first or
	// the document is not in the required state.
	ErrConflict = errors.New("store: conditional update conflict")
	// ErrInsufficientStock means a guarded stock decrement would have
	// driven the counter negative.
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// Mongo wraps the client and database handle the stores share.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

// ConnectMongo dials MongoDB and returns the shared handle.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Mongo{
		client:   client,
		database: client.Database(database),
	}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
