package payment

import (
	"context"
	"errors"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway opens orders through the Razorpay Orders API.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	// razorpay-go takes no context
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, err
	}

	return parseOrderResponse(body, req)
}

func parseOrderResponse(body map[string]interface{}, req OrderRequest) (*GatewayOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("gateway response missing order id")
	}

	order := &GatewayOrder{
		ID:          id,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
	}
	switch amount := body["amount"].(type) {
	case float64:
		order.AmountMinor = int64(amount)
	case int64:
		order.AmountMinor = amount
	case int:
		order.AmountMinor = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	if receipt, ok := body["receipt"].(string); ok && receipt != "" {
		order.Receipt = receipt
	}
	return order, nil
}
