package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/store"
)

type AdminFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func AdminLogin(admins AdminFinder, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/login"
		defer handlePanic(c, route)

		var req AdminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		admin, err := admins.FindByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			zap.L().Info("[AUTH] unknown admin", zap.String("email", email))
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if admin.Role != models.RoleAdmin {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
			zap.L().Info("[AUTH] wrong password", zap.String("email", email))
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		signed, err := middleware.IssueAdminToken(jwtSecret, admin.ID.Hex(), admin.Email, accessTTL)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		zap.L().Info("[AUTH] admin logged in", zap.String("email", email))
		c.JSON(http.StatusOK, gin.H{
			"token":     signed,
			"expiresIn": int64(accessTTL.Seconds()),
		})
	}
}
