package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/orders"
	"storefront/internal/payment"
)

type CheckoutOpener interface {
	Open(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error)
}

type PaymentRecorder interface {
	VerifyAndRecord(ctx context.Context, in orders.VerifyInput) (string, error)
}

type createPaymentOrderRequest struct {
	Amount   float64           `json:"amount" binding:"required"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

func CreatePaymentOrder(broker CheckoutOpener) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/create-order"
		defer handlePanic(c, route)

		var req createPaymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		checkout, err := broker.Open(ctx, payment.CheckoutRequest{
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Notes:    req.Notes,
		})
		middleware.RecordOrderOperation("create_payment_order", err == nil)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, checkout)
	}
}

type orderItemRequest struct {
	ProductID   string  `json:"productId" binding:"required"`
	ProductCode string  `json:"productCode"`
	Name        string  `json:"name"`
	Price       float64 `json:"price" binding:"gte=0"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
}

// orderDetailsRequest is validated by orders.Service after the signature
// check, so it carries no binding rules.
type orderDetailsRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone"`
	ShippingAddress string             `json:"shippingAddress"`
	Items           []orderItemRequest `json:"items"`
	TotalAmount     float64            `json:"totalAmount"`
	SessionID       string             `json:"sessionId"`
}

type verifyPaymentRequest struct {
	GatewayOrderID   string              `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string              `json:"razorpay_payment_id" binding:"required"`
	Signature        string              `json:"razorpay_signature" binding:"required"`
	OrderDetails     orderDetailsRequest `json:"orderDetails" binding:"-"`
}

func VerifyPayment(recorder PaymentRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/verify"
		defer handlePanic(c, route)

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		orderID, err := recorder.VerifyAndRecord(ctx, orders.VerifyInput{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
			Order: orders.OrderDetails{
				Customer: orders.CustomerInfo{
					Name:            req.OrderDetails.CustomerName,
					Email:           req.OrderDetails.CustomerEmail,
					Phone:           req.OrderDetails.CustomerPhone,
					ShippingAddress: req.OrderDetails.ShippingAddress,
				},
				Items:       toOrderItems(req.OrderDetails.Items),
				TotalAmount: req.OrderDetails.TotalAmount,
				SessionID:   req.OrderDetails.SessionID,
			},
		})
		middleware.RecordOrderOperation("verify_payment", err == nil)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		zap.L().Info("[PAYMENT] payment verified", zap.String("orderId", orderID))
		c.JSON(http.StatusOK, gin.H{"success": true, "orderId": orderID})
	}
}
