package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/middleware"
	"storefront/internal/notify"
)

// Deps is everything the HTTP surface needs. Nil Carts disables the cart
// routes.
type Deps struct {
	Checkout       CheckoutOpener
	Payments       PaymentRecorder
	Intake         OrderIntake
	Orders         OrderAdmin
	Products       ProductWriter
	Carts          CartStore
	Admins         AdminFinder
	Mailer         notify.Sender
	Health         map[string]HealthCheck
	JWTSecret      string
	AccessTokenTTL time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(), middleware.Prometheus())

	r.GET("/health", Health(d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/payments/create-order", CreatePaymentOrder(d.Checkout))
		api.POST("/payments/verify", VerifyPayment(d.Payments))

		api.POST("/orders", CreateOrder(d.Intake))
		api.POST("/orders/inquiry", CreateInquiryOrder(d.Intake))

		api.GET("/products", GetProducts(d.Products))
		api.GET("/products/:id", GetProduct(d.Products))

		if d.Carts != nil {
			api.GET("/cart/:sessionId", GetCart(d.Carts))
			api.DELETE("/cart/:sessionId", ClearCart(d.Carts))
			api.POST("/cart/:sessionId/items", AddCartItem(d.Carts, d.Products))
			api.PUT("/cart/:sessionId/items/:productId", UpdateCartItem(d.Carts))
			api.DELETE("/cart/:sessionId/items/:productId", RemoveCartItem(d.Carts))
		}
	}

	r.POST("/admin/login", AdminLogin(d.Admins, d.JWTSecret, d.AccessTokenTTL))

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(d.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		admin.GET("/orders", GetOrders(d.Orders))
		admin.GET("/orders/:id", GetOrder(d.Orders))
		admin.PUT("/orders/:id/status", UpdateOrderStatus(d.Orders))
		admin.PUT("/orders/status", UpdateOrderStatus(d.Orders))

		admin.GET("/products", GetAllProducts(d.Products))
		admin.POST("/products", CreateProduct(d.Products))
		admin.PUT("/products/:id", UpdateProduct(d.Products))
		admin.DELETE("/products/:id", DeleteProduct(d.Products))

		admin.POST("/notifications/send", SendNotification(d.Mailer))
	}

	return r
}
