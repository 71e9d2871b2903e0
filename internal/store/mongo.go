// Package store provides MongoDB access for the pipeline's source and
// target collections.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/JonMunkholm/mongoetl/internal/config"
)

// DefaultBatchSize is the number of documents per InsertMany call.
const DefaultBatchSize = 1000

// Client wraps a MongoDB client shared by the source and target collections.
type Client struct {
	client *mongo.Client
}

// Connect creates a client for cfg.URI. The driver connects lazily, so an
// unreachable server is reported by the first Ping or query.
func Connect(cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("mongoetl").
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetConnectTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	return &Client{client: client}, nil
}

// Close disconnects from the deployment.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Collection returns a handle to db.name.
func (c *Client) Collection(db, name string, batchSize int) *Collection {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Collection{
		client:    c.client,
		coll:      c.client.Database(db).Collection(name),
		name:      db + "." + name,
		batchSize: batchSize,
	}
}

// Collection is one MongoDB collection used as a source or a sink.
type Collection struct {
	client    *mongo.Client
	coll      *mongo.Collection
	name      string
	batchSize int
}

// Name returns the namespace as db.collection.
func (c *Collection) Name() string { return c.name }

// Ping checks the deployment is reachable within the server selection timeout.
func (c *Collection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// FetchAll reads every document in the collection, in natural order.
func (c *Collection) FetchAll(ctx context.Context) ([]bson.D, error) {
	cur, err := c.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}
	return docs, nil
}

// ReplaceAll deletes every document and inserts docs in ordered batches.
// The collection is left empty when docs is empty. Counts reflect what was
// done before an error.
func (c *Collection) ReplaceAll(ctx context.Context, docs []bson.D) (int64, int64, error) {
	res, err := c.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, 0, fmt.Errorf("delete: %w", err)
	}
	deleted := res.DeletedCount

	var inserted int64
	for _, batch := range batches(docs, c.batchSize) {
		ir, err := c.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true))
		if ir != nil {
			inserted += int64(len(ir.InsertedIDs))
		}
		if err != nil {
			return deleted, inserted, fmt.Errorf("insert after %d documents: %w", inserted, err)
		}
		slog.Debug("inserted batch", "collection", c.name, "batch", len(batch), "total", inserted)
	}
	return deleted, inserted, nil
}

// batches splits docs into slices of at most size documents.
func batches(docs []bson.D, size int) [][]bson.D {
	if len(docs) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]bson.D, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end])
	}
	return out
}
