package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/store"
)

type CartStore interface {
	Items(ctx context.Context, sessionID string) ([]cart.Line, error)
	Add(ctx context.Context, sessionID string, line cart.Line) ([]cart.Line, error)
	SetQuantity(ctx context.Context, sessionID, productID, size string, quantity int) ([]cart.Line, error)
	Remove(ctx context.Context, sessionID, productID, size string) ([]cart.Line, error)
	Clear(ctx context.Context, sessionID string) error
}

type ProductLookup interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
}

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size"`
}

type updateCartItemRequest struct {
	Quantity int    `json:"quantity" binding:"gte=0"`
	Size     string `json:"size"`
}

func respondCart(c *gin.Context, lines []cart.Line) {
	c.JSON(http.StatusOK, gin.H{"items": lines, "total": cart.Total(lines)})
}

func respondCartError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidSession):
		respondWithError(c, http.StatusBadRequest, route, "invalid session id")
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, cart.ErrLineNotFound):
		respondWithError(c, http.StatusNotFound, route, "item not in cart")
	default:
		respondServiceError(c, route, err)
	}
}

func GetCart(carts CartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart/:sessionId"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := carts.Items(ctx, c.Param("sessionId"))
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		respondCart(c, lines)
	}
}

// AddCartItem prices the line from the catalog; client prices are ignored.
func AddCartItem(carts CartStore, products ProductLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/:sessionId/items"
		defer handlePanic(c, route)

		sessionID := c.Param("sessionId")
		if !cart.ValidSessionID(sessionID) {
			respondWithError(c, http.StatusBadRequest, route, "invalid session id")
			return
		}

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := products.FindByID(ctx, req.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if !product.IsActive {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		size := strings.TrimSpace(req.Size)
		if !product.HasSize(size) {
			respondWithError(c, http.StatusBadRequest, route, "size not offered")
			return
		}

		lines, err := carts.Add(ctx, sessionID, cart.Line{
			ProductID: product.ID.Hex(),
			Code:      product.Code,
			Name:      product.Name,
			Price:     product.EffectivePrice(),
			Quantity:  req.Quantity,
			Size:      size,
		})
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		respondCart(c, lines)
	}
}

func UpdateCartItem(carts CartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/:sessionId/items/:productId"
		defer handlePanic(c, route)

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := carts.SetQuantity(ctx, c.Param("sessionId"), c.Param("productId"), strings.TrimSpace(req.Size), req.Quantity)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		respondCart(c, lines)
	}
}

func RemoveCartItem(carts CartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/:sessionId/items/:productId"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := carts.Remove(ctx, c.Param("sessionId"), c.Param("productId"), strings.TrimSpace(c.Query("size")))
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		respondCart(c, lines)
	}
}

func ClearCart(carts CartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/:sessionId"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := carts.Clear(ctx, c.Param("sessionId")); err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": []cart.Line{}, "total": 0})
	}
}
