package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"storefront/internal/models"
)

const ClaimsKey = "claims"

func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parts := strings.Fields(raw)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			zap.L().Debug("[AUTH] token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		role, _ := claims["role"].(string)
		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if role == r {
					match = true
					break
				}
			}
			if !match {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, models.RoleAdmin)
}

// ParseToken validates an HS256 token and returns its claims. Tokens signed
// with any other algorithm are rejected.
func ParseToken(secret, raw string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}

// IssueAdminToken signs an admin access token valid for ttl.
func IssueAdminToken(secret, adminID, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   adminID,
		"role":  models.RoleAdmin,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
