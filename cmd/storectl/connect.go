package main

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/config"
	"storefront/internal/database"
)

// openDB loads configuration and connects to Mongo. The caller disconnects.
func openDB(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	config.Load()
	if config.AppEnv.MongoURI == "" {
		return nil, nil, fmt.Errorf("MONGO_URI is required")
	}

	client, err := database.Connect(ctx, config.AppEnv.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Database(config.AppEnv.DBName), nil
}
