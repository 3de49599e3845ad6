package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/store"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		zap.L().Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	zap.L().Warn("returning error", zap.String("route", route), zap.Int("status", status), zap.String("error", message))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "min", "gt", "gte":
				details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

// respondServiceError maps service errors onto the HTTP error taxonomy:
// validation and integrity failures are 400, everything upstream is 5xx.
func respondServiceError(c *gin.Context, route string, err error) {
	var validation *orders.ValidationError
	switch {
	case errors.As(err, &validation):
		zap.L().Info("validation failed", zap.String("route", route), zap.Strings("details", validation.Problems))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": validation.Problems,
		})
	case errors.Is(err, orders.ErrSignatureMismatch):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   orders.ErrSignatureMismatch.Error(),
		})
	case errors.Is(err, payment.ErrInvalidAmount):
		respondWithError(c, http.StatusBadRequest, route, "amount must be a positive number")
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "not found")
	case errors.Is(err, store.ErrPaymentRecorded):
		respondWithError(c, http.StatusConflict, route, "payment already recorded")
	case errors.Is(err, store.ErrDuplicate):
		respondWithError(c, http.StatusConflict, route, "already exists")
	case errors.Is(err, payment.ErrGateway):
		zap.L().Error("gateway failure", zap.String("route", route), zap.Error(err))
		respondWithError(c, http.StatusBadGateway, route, "payment gateway error")
	case errors.Is(err, context.DeadlineExceeded):
		zap.L().Error("upstream timeout", zap.String("route", route), zap.Error(err))
		respondWithError(c, http.StatusGatewayTimeout, route, "upstream timeout")
	default:
		zap.L().Error("upstream failure", zap.String("route", route), zap.Error(err))
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
