package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type ProductFilter struct {
	Category        string
	Search          string
	IncludeInactive bool
	Page            int64
	Limit           int64
}

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Code        *string
	Price       *float64
	SaleEnabled *bool
	SalePrice   *float64
	Category    *string
	Sizes       *[]string
	Description *string
	ImageURL    *string
	Stock       *int
	IsActive    *bool
}

type ProductStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{coll: db.Collection(ProductsCollection), now: time.Now}
}

// FindByID returns a non-deleted product. Inactive products are still
// returned; callers decide whether they are sellable.
func (s *ProductStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var raw bson.M
	err = s.coll.FindOne(ctx, bson.M{"_id": oid, "isDeleted": bson.M{"$ne": true}}).Decode(&raw)
	if err != nil {
		return nil, translate(err)
	}
	product, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductStore) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := bson.M{"isDeleted": bson.M{"$ne": true}}
	if !f.IncludeInactive {
		filter["isActive"] = bson.M{"$ne": false}
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		filter["category"] = category
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip, limit := pageBounds(f.Page, f.Limit)
	cursor, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	now := s.now()
	product.ID = primitive.NewObjectID()
	product.IsDeleted = false
	product.DeletedAt = nil
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("insert product %s: %w", product.Code, translate(err))
	}
	product.Decorate()
	return nil
}

func (s *ProductStore) Update(ctx context.Context, id string, u ProductUpdate) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{"updatedAt": s.now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Code != nil {
		set["code"] = *u.Code
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.SaleEnabled != nil {
		set["saleEnabled"] = *u.SaleEnabled
	}
	if u.SalePrice != nil {
		set["salePrice"] = *u.SalePrice
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Sizes != nil {
		set["sizes"] = models.SplitList(strings.Join(*u.Sizes, ","))
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.ImageURL != nil {
		set["imageUrl"] = *u.ImageURL
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}

	var raw bson.M
	err = s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "isDeleted": bson.M{"$ne": true}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		return nil, translate(err)
	}
	product, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SoftDelete hides a product from every read without removing the document,
// so order snapshots that reference it stay resolvable for audits.
func (s *ProductStore) SoftDelete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	now := s.now()
	res, err := s.coll.UpdateOne(
		ctx,
		bson.M{"_id": oid, "isDeleted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isDeleted": true, "isActive": false, "deletedAt": now, "updatedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeProductDocument tolerates legacy documents where category was
// stored as an array and stock as a float or string-ish number.
func normalizeProductDocument(raw bson.M) (models.Product, error) {
	switch cat := raw["category"].(type) {
	case bson.A:
		raw["category"] = firstString(cat)
	case []interface{}:
		raw["category"] = firstString(cat)
	}

	switch typed := raw["stock"].(type) {
	case int32:
		raw["stock"] = int(typed)
	case int64:
		raw["stock"] = int(typed)
	case float64:
		raw["stock"] = int(typed)
	case int:
	default:
		raw["stock"] = 0
	}

	if _, ok := raw["isActive"]; !ok {
		raw["isActive"] = true
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if err := bson.Unmarshal(data, &p); err != nil {
		return models.Product{}, err
	}

	p.Decorate()
	return p, nil
}

func firstString(values []interface{}) string {
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}
