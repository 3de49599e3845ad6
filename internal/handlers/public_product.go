package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
)

// ProductReader is the read side of the catalog.
type ProductReader interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error)
}

/*
GET /api/products
- category, search optional
- page + limit optional, default page size 20
*/
func GetProducts(products ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		zap.L().Debug("[CATALOG] list",
			zap.String("page", c.Query("page")),
			zap.String("limit", c.Query("limit")),
			zap.String("category", c.Query("category")),
			zap.String("search", c.Query("search")),
		)

		page, limit, err := store.ParsePage(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := products.List(ctx, store.ProductFilter{
			Category: strings.TrimSpace(c.Query("category")),
			Search:   strings.TrimSpace(c.Query("search")),
			Page:     page,
			Limit:    limit,
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

func GetProduct(products ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := products.FindByID(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if !product.IsActive {
			respondWithError(c, http.StatusNotFound, route, "not found")
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
