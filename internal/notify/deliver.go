package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_notifications_total",
		Help: "Total number of notification delivery attempts",
	},
	[]string{"kind", "result"},
)

// Deliver makes one attempt through sender and reports success as a bool.
// Errors are logged and counted, never returned.
func Deliver(ctx context.Context, sender Sender, n Notification) bool {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("[NOTIFY] panic during delivery", zap.String("kind", string(n.Kind)), zap.Any("panic", r))
			notificationsTotal.WithLabelValues(string(n.Kind), "error").Inc()
		}
	}()

	if err := n.Validate(); err != nil {
		zap.L().Warn("[NOTIFY] rejected notification", zap.String("kind", string(n.Kind)), zap.Error(err))
		notificationsTotal.WithLabelValues(string(n.Kind), "invalid").Inc()
		return false
	}

	if err := sender.Send(ctx, n); err != nil {
		zap.L().Error("[NOTIFY] delivery failed",
			zap.String("kind", string(n.Kind)),
			zap.String("orderId", n.Data.OrderID),
			zap.Error(err),
		)
		notificationsTotal.WithLabelValues(string(n.Kind), "error").Inc()
		return false
	}

	zap.L().Info("[NOTIFY] delivered", zap.String("kind", string(n.Kind)), zap.String("orderId", n.Data.OrderID))
	notificationsTotal.WithLabelValues(string(n.Kind), "success").Inc()
	return true
}
