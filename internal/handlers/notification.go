package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/notify"
)

type sendNotificationRequest struct {
	Type      string           `json:"type" binding:"required,oneof=order_confirmation status_update invoice admin_notification"`
	OrderData notify.OrderData `json:"orderData"`
}

// SendNotification renders and sends one email synchronously and reports
// whether the single delivery attempt succeeded.
func SendNotification(sender notify.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/notifications/send"
		defer handlePanic(c, route)

		var req sendNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		n := notify.Notification{Kind: notify.Kind(req.Type), Data: req.OrderData}
		if err := n.Validate(); err != nil {
			if errors.Is(err, notify.ErrInvalidNotification) {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 6*requestTimeout)
		defer cancel()

		if !notify.Deliver(ctx, sender, n) {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to send notification"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
