package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	OrderTypeOnline   = "online"
	OrderTypeWhatsApp = "whatsapp"
)

// OrderItem is a snapshot of one purchased product. It is never mutated after
// the order is created.
type OrderItem struct {
	ProductID   string  `bson:"productId" json:"productId"`
	ProductCode string  `bson:"productCode" json:"productCode"`
	Name        string  `bson:"name" json:"name"`
	Price       float64 `bson:"price" json:"price"`
	Quantity    int     `bson:"quantity" json:"quantity"`
}

// Subtotal returns price × quantity for the line.
func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Order defines the persisted order document. OrderID is the public
// identifier; the Mongo _id never leaves the store.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID          string             `bson:"orderId" json:"orderId"`
	CustomerName     string             `bson:"customerName" json:"customerName"`
	CustomerEmail    string             `bson:"customerEmail,omitempty" json:"customerEmail,omitempty"`
	CustomerPhone    string             `bson:"customerPhone" json:"customerPhone"`
	ShippingAddress  string             `bson:"shippingAddress" json:"shippingAddress"`
	Items            []OrderItem        `bson:"items" json:"items"`
	TotalAmount      float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentStatus    string             `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus      string             `bson:"orderStatus" json:"orderStatus"`
	OrderType        string             `bson:"orderType" json:"orderType"`
	GatewayOrderID   string             `bson:"razorpayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	GatewayPaymentID string             `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	// ReviewNote is set on a paid order whose contents failed a server check.
	ReviewNote       string             `bson:"reviewNote,omitempty" json:"reviewNote,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func IsValidOrderType(s string) bool {
	return s == OrderTypeOnline || s == OrderTypeWhatsApp
}
