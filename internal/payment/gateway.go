package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrGateway       = errors.New("payment gateway error")
)

// OrderRequest is what the gateway needs to open a transaction.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// GatewayOrder is the gateway's handle for an open transaction.
type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
}

// CheckoutRequest is the storefront's request to start an online payment.
type CheckoutRequest struct {
	Amount   float64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Checkout carries everything the client needs to launch the gateway widget.
type Checkout struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// Broker opens gateway transactions. Every call creates a new remote
// transaction; nothing is deduplicated or retried.
type Broker struct {
	gateway  Gateway
	keyID    string
	currency string
	now      func() time.Time
}

func NewBroker(gateway Gateway, keyID, defaultCurrency string) *Broker {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &Broker{
		gateway:  gateway,
		keyID:    keyID,
		currency: strings.ToUpper(defaultCurrency),
		now:      time.Now,
	}
}

func (b *Broker) Open(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if !ValidAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = b.currency
	}
	receipt := strings.TrimSpace(req.Receipt)
	if receipt == "" {
		receipt = "rcpt_" + strconv.FormatInt(b.now().UnixMilli(), 10)
	}

	order, err := b.gateway.CreateOrder(ctx, OrderRequest{
		AmountMinor: ToMinorUnits(req.Amount),
		Currency:    currency,
		Receipt:     receipt,
		Notes:       req.Notes,
	})
	if err != nil {
		zap.L().Error("[PAYMENT] gateway order creation failed", zap.String("receipt", receipt), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	zap.L().Info("[PAYMENT] gateway order created",
		zap.String("gatewayOrderId", order.ID),
		zap.Int64("amount", order.AmountMinor),
		zap.String("currency", order.Currency),
	)

	return &Checkout{
		OrderID:  order.ID,
		Amount:   order.AmountMinor,
		Currency: order.Currency,
		KeyID:    b.keyID,
	}, nil
}
