package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/importflow/importflow/backend/go-services/internal/config"
)

const (
	appName        = "importflow"
	defaultTimeout = 10 * time.Second
)

// MongoCollection connects with cfg and returns the named collection of
// cfg.Database. The caller disconnects the client.
func MongoCollection(ctx context.Context, cfg config.MongoDBConfig, name string) (*mongo.Client, *mongo.Collection, error) {
	if cfg.URI == "" {
		return nil, nil, errors.New("mongo: URI is empty")
	}
	if cfg.Database == "" {
		return nil, nil, errors.New("mongo: database name is empty")
	}
	client, err := connect(ctx, cfg.URI, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Database(cfg.Database).Collection(name), nil
}

func connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetAppName(appName).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
