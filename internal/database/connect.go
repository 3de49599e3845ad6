package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connect dials MongoDB and pings the primary before returning the client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	zap.L().Info("[DB] connected to MongoDB")
	return client, nil
}

// EnsureIndexes creates every index the stores depend on.
func EnsureIndexes(db *mongo.Database) error {
	for _, ensure := range []func(*mongo.Database) error{
		EnsureOrderIndexes,
		EnsureProductIndexes,
		EnsureAdminIndexes,
	} {
		if err := ensure(db); err != nil {
			return err
		}
	}
	return nil
}
