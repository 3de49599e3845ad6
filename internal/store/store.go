// Package store holds the MongoDB-backed repositories for orders, products
// and admins.
package store

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate key")
	// ErrPaymentRecorded means an order already carries the gateway order id.
	ErrPaymentRecorded = fmt.Errorf("payment already recorded: %w", ErrDuplicate)
)

// GatewayOrderIndex backs ErrPaymentRecorded.
const GatewayOrderIndex = "razorpayOrderId_unique"

const (
	OrdersCollection   = "orders"
	ProductsCollection = "products"
	AdminsCollection   = "admins"
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// insertError tells a replayed gateway order apart from an orderId clash.
func insertError(err error) error {
	if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), GatewayOrderIndex) {
		return ErrPaymentRecorded
	}
	return translate(err)
}
