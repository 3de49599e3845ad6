package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type AdminStore struct {
	coll *mongo.Collection
}

func NewAdminStore(db *mongo.Database) *AdminStore {
	return &AdminStore{coll: db.Collection(AdminsCollection)}
}

func (s *AdminStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := s.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&admin)
	if err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

// Upsert creates the admin or replaces its password hash.
func (s *AdminStore) Upsert(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()
	_, err := s.coll.UpdateOne(
		ctx,
		bson.M{"email": email},
		bson.M{
			"$set": bson.M{
				"passwordHash": passwordHash,
				"role":         models.RoleAdmin,
				"updatedAt":    now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}
