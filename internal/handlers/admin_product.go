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

type ProductWriter interface {
	ProductReader
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id string, update store.ProductUpdate) (*models.Product, error)
	SoftDelete(ctx context.Context, id string) error
}

type ProductCreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Code        string   `json:"code" binding:"required"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	SaleEnabled bool     `json:"saleEnabled"`
	SalePrice   *float64 `json:"salePrice"`
	Category    string   `json:"category"`
	Sizes       []string `json:"sizes"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl" binding:"omitempty,url"`
	Stock       int      `json:"stock" binding:"gte=0"`
	IsActive    *bool    `json:"isActive"`
}

type ProductUpdateRequest struct {
	Name        *string   `json:"name"`
	Code        *string   `json:"code"`
	Price       *float64  `json:"price"`
	SaleEnabled *bool     `json:"saleEnabled"`
	SalePrice   *float64  `json:"salePrice"`
	Category    *string   `json:"category"`
	Sizes       *[]string `json:"sizes"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"imageUrl"`
	Stock       *int      `json:"stock"`
	IsActive    *bool     `json:"isActive"`
}

func GetAllProducts(products ProductWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		page, limit, err := store.ParsePage(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := products.List(ctx, store.ProductFilter{
			Category:        strings.TrimSpace(c.Query("category")),
			Search:          strings.TrimSpace(c.Query("search")),
			IncludeInactive: true,
			Page:            page,
			Limit:           limit,
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

func CreateProduct(products ProductWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		var req ProductCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		pricing, err := salePricing{}.merge(&req.Price, &req.SaleEnabled, req.SalePrice)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Code:        strings.TrimSpace(req.Code),
			Price:       pricing.Price,
			SaleEnabled: pricing.SaleEnabled,
			SalePrice:   pricing.SalePrice,
			Category:    strings.TrimSpace(req.Category),
			Sizes:       models.SplitList(strings.Join(req.Sizes, ",")),
			Description: strings.TrimSpace(req.Description),
			ImageURL:    strings.TrimSpace(req.ImageURL),
			Stock:       req.Stock,
			IsActive:    isActive,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := products.Create(ctx, &product); err != nil {
			respondServiceError(c, route, err)
			return
		}

		zap.L().Info("[CATALOG] product created", zap.String("id", product.ID.Hex()), zap.String("code", product.Code))
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProduct(products ProductWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		id := c.Param("id")

		var req ProductUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		existing, err := products.FindByID(ctx, id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		current := salePricing{Price: existing.Price, SaleEnabled: existing.SaleEnabled, SalePrice: existing.SalePrice}
		next, err := current.merge(req.Price, req.SaleEnabled, req.SalePrice)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		update := store.ProductUpdate{
			Category:    trimmedPtr(req.Category),
			Description: trimmedPtr(req.Description),
			ImageURL:    trimmedPtr(req.ImageURL),
			IsActive:    req.IsActive,
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name required")
				return
			}
			update.Name = &name
		}
		if req.Code != nil {
			code := strings.TrimSpace(*req.Code)
			if code == "" {
				respondWithError(c, http.StatusBadRequest, route, "code required")
				return
			}
			update.Code = &code
		}
		if req.Sizes != nil {
			sizes := []string(models.SplitList(strings.Join(*req.Sizes, ",")))
			update.Sizes = &sizes
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				respondWithError(c, http.StatusBadRequest, route, "stock must be >= 0")
				return
			}
			update.Stock = req.Stock
		}
		current.changes(next, &update)

		updated, err := products.Update(ctx, id, update)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		zap.L().Info("[CATALOG] product updated", zap.String("id", id))
		c.JSON(http.StatusOK, updated)
	}
}

func DeleteProduct(products ProductWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := products.SoftDelete(ctx, c.Param("id")); err != nil {
			respondServiceError(c, route, err)
			return
		}

		zap.L().Info("[CATALOG] product deleted", zap.String("id", c.Param("id")))
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}
