package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthCheck returns nil when a dependency is reachable.
type HealthCheck func(ctx context.Context) error

func MongoCheck(db *mongo.Database) HealthCheck {
	return func(ctx context.Context) error {
		return ensureDBConnection(ctx, db)
	}
}

func Health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"
		defer handlePanic(c, route)

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := gin.H{}
		for _, name := range names {
			if err := checks[name](c.Request.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
