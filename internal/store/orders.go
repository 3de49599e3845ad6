package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// OrderFilter narrows List. Empty fields match everything.
type OrderFilter struct {
	OrderStatus   string
	PaymentStatus string
	OrderType     string
	Page          int64
	Limit         int64
}

type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{coll: db.Collection(OrdersCollection)}
}

// Insert writes a new order. A reused orderId yields ErrDuplicate and a
// reused gateway order id yields ErrPaymentRecorded.
func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	res, err := s.coll.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.OrderID, insertError(err))
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (s *OrderStore) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.coll.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// UpdateStatus sets whichever of the two status fields are non-nil and returns
// the order as stored after the update.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, orderStatus, paymentStatus *string) (*models.Order, error) {
	set := bson.M{}
	if orderStatus != nil {
		set["orderStatus"] = *orderStatus
	}
	if paymentStatus != nil {
		set["paymentStatus"] = *paymentStatus
	}
	if len(set) == 0 {
		return s.FindByOrderID(ctx, orderID)
	}

	var updated models.Order
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

// List returns one page of orders, newest first, plus the total match count.
func (s *OrderStore) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.OrderStatus != "" {
		filter["orderStatus"] = f.OrderStatus
	}
	if f.PaymentStatus != "" {
		filter["paymentStatus"] = f.PaymentStatus
	}
	if f.OrderType != "" {
		filter["orderType"] = f.OrderType
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

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
