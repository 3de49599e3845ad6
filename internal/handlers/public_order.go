package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
)

type OrderIntake interface {
	CreateManual(ctx context.Context, in orders.ManualOrderInput) (string, error)
	CreateFromInquiry(ctx context.Context, in orders.InquiryInput) (*orders.InquiryResult, error)
}

type createOrderRequest struct {
	CustomerName    string             `json:"customerName" binding:"required"`
	CustomerEmail   string             `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone   string             `json:"customerPhone" binding:"required"`
	ShippingAddress string             `json:"shippingAddress" binding:"required"`
	Items           []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount     float64            `json:"totalAmount" binding:"gte=0"`
	OrderType       string             `json:"orderType"`
	PaymentStatus   string             `json:"paymentStatus"`
	OrderStatus     string             `json:"orderStatus"`
}

func toOrderItems(items []orderItemRequest) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ProductID:   item.ProductID,
			ProductCode: item.ProductCode,
			Name:        item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}
	return out
}

func CreateOrder(intake OrderIntake) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		orderID, err := intake.CreateManual(ctx, orders.ManualOrderInput{
			Customer: orders.CustomerInfo{
				Name:            req.CustomerName,
				Email:           req.CustomerEmail,
				Phone:           req.CustomerPhone,
				ShippingAddress: req.ShippingAddress,
			},
			Items:         toOrderItems(req.Items),
			TotalAmount:   req.TotalAmount,
			OrderType:     req.OrderType,
			PaymentStatus: req.PaymentStatus,
			OrderStatus:   req.OrderStatus,
		})
		middleware.RecordOrderOperation("create_order", err == nil)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "orderId": orderID})
	}
}

type inquiryOrderRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,min=1"`
	Size            string `json:"size"`
	CustomerName    string `json:"customerName" binding:"required"`
	CustomerEmail   string `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone   string `json:"customerPhone" binding:"required"`
	ShippingAddress string `json:"shippingAddress" binding:"required"`
}

func CreateInquiryOrder(intake OrderIntake) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/inquiry"
		defer handlePanic(c, route)

		var req inquiryOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		result, err := intake.CreateFromInquiry(ctx, orders.InquiryInput{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Size:      req.Size,
			Customer: orders.CustomerInfo{
				Name:            req.CustomerName,
				Email:           req.CustomerEmail,
				Phone:           req.CustomerPhone,
				ShippingAddress: req.ShippingAddress,
			},
		})
		middleware.RecordOrderOperation("inquiry_order", err == nil)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":     true,
			"orderId":     result.OrderID,
			"whatsappUrl": result.WhatsAppURL,
		})
	}
}
