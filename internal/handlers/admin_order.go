package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/store"
)

type OrderAdmin interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
	List(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, in orders.StatusUpdate) (*models.Order, error)
}

func GetOrders(admin OrderAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		page, limit, err := store.ParsePage(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := admin.List(ctx, store.OrderFilter{
			OrderStatus:   strings.TrimSpace(c.Query("orderStatus")),
			PaymentStatus: strings.TrimSpace(c.Query("paymentStatus")),
			OrderType:     strings.TrimSpace(c.Query("orderType")),
			Page:          page,
			Limit:         limit,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": list,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}

func GetOrder(admin OrderAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := admin.Get(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type updateOrderStatusRequest struct {
	ID             string  `json:"id"`
	OrderStatus    *string `json:"orderStatus"`
	PaymentStatus  *string `json:"paymentStatus"`
	TrackingNumber string  `json:"trackingNumber"`
}

// UpdateOrderStatus accepts the order id from the path or, for the legacy
// body-only route, from the request body.
func UpdateOrderStatus(admin OrderAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/orders/status"
		defer handlePanic(c, route)

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderID := strings.TrimSpace(c.Param("id"))
		if orderID == "" {
			orderID = strings.TrimSpace(req.ID)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := admin.UpdateStatus(ctx, orders.StatusUpdate{
			OrderID:        orderID,
			OrderStatus:    req.OrderStatus,
			PaymentStatus:  req.PaymentStatus,
			TrackingNumber: req.TrackingNumber,
		})
		middleware.RecordOrderOperation("update_status", err == nil)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}
