package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"storefront/internal/store"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	codeIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "code", Value: 1}},
		Options: options.Index().
			SetName("code_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"isDeleted": false,
			}),
	}

	return createIndexes(ctx, db.Collection("products"), codeIndex, mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}},
		Options: options.Index().SetName("category_active"),
	})
}

func EnsureAdminIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return createIndexes(ctx, db.Collection("admins"), mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
}

// EnsureOrderIndexes makes orderId unique so identifier collisions across
// processes surface as insert errors instead of duplicate records. The
// gateway order id is unique where present, so a replayed payment callback
// cannot record a second order.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return createIndexes(ctx, db.Collection("orders"),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetName("orderId_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "razorpayOrderId", Value: 1}},
			Options: options.Index().SetName(store.GatewayOrderIndex).SetUnique(true).SetSparse(true),
		},
	)
}

func createIndexes(ctx context.Context, coll *mongo.Collection, models ...mongo.IndexModel) error {
	for _, model := range models {
		name := ""
		if model.Options != nil && model.Options.Name != nil {
			name = *model.Options.Name
		}
		zap.L().Info("[DB] creating index", zap.String("collection", coll.Name()), zap.String("index", name))
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			zap.L().Error("[DB] index error", zap.String("collection", coll.Name()), zap.String("index", name), zap.Error(err))
			return err
		}
	}
	return nil
}
