// Package notify renders and delivers order emails. Delivery is always
// best-effort: callers hand a Notification to a Dispatcher and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindStatusUpdate      Kind = "status_update"
	KindInvoice           Kind = "invoice"
	KindAdminNotification Kind = "admin_notification"
)

var ErrInvalidNotification = errors.New("invalid notification")

func (k Kind) Valid() bool {
	switch k {
	case KindOrderConfirmation, KindStatusUpdate, KindInvoice, KindAdminNotification:
		return true
	}
	return false
}

// OrderData is the payload every email kind renders from.
type OrderData struct {
	OrderID         string             `json:"orderId"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail,omitempty"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
	ShippingAddress string             `json:"shippingAddress,omitempty"`
	Items           []models.OrderItem `json:"items,omitempty"`
	TotalAmount     float64            `json:"totalAmount"`
	OrderStatus     string             `json:"orderStatus,omitempty"`
	PaymentStatus   string             `json:"paymentStatus,omitempty"`
	OrderType       string             `json:"orderType,omitempty"`
	TrackingNumber  string             `json:"trackingNumber,omitempty"`
	CreatedAt       time.Time          `json:"createdAt,omitempty"`
}

type Notification struct {
	Kind Kind      `json:"type"`
	Data OrderData `json:"orderData"`
}

// Validate checks the required field set for the notification kind.
func (n Notification) Validate() error {
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Kind)
	}

	var missing []string
	if strings.TrimSpace(n.Data.OrderID) == "" {
		missing = append(missing, "orderId")
	}
	if strings.TrimSpace(n.Data.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if n.Data.TotalAmount < 0 {
		missing = append(missing, "totalAmount")
	}
	if n.Kind != KindAdminNotification && strings.TrimSpace(n.Data.CustomerEmail) == "" {
		missing = append(missing, "customerEmail")
	}
	if n.Kind == KindStatusUpdate && n.Data.OrderStatus == "" && n.Data.PaymentStatus == "" {
		missing = append(missing, "orderStatus|paymentStatus")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", ErrInvalidNotification, n.Kind, strings.Join(missing, ", "))
	}
	return nil
}

// FromOrder builds a notification of the given kind from a stored order.
func FromOrder(kind Kind, order *models.Order) Notification {
	return Notification{
		Kind: kind,
		Data: OrderData{
			OrderID:         order.OrderID,
			CustomerName:    order.CustomerName,
			CustomerEmail:   order.CustomerEmail,
			CustomerPhone:   order.CustomerPhone,
			ShippingAddress: order.ShippingAddress,
			Items:           order.Items,
			TotalAmount:     order.TotalAmount,
			OrderStatus:     order.OrderStatus,
			PaymentStatus:   order.PaymentStatus,
			OrderType:       order.OrderType,
			CreatedAt:       order.CreatedAt,
		},
	}
}

// Sender performs a single delivery attempt.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher accepts notifications without waiting for delivery and never
// reports delivery failures to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}
