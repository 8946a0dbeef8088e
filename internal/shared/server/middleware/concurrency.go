package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"quizgen-backend/internal/shared/server/respond"
)

// Concurrency caps the number of requests running the wrapped handlers at
// once. Saturated requests fail fast with 503 instead of queueing.
func Concurrency(max int64) gin.HandlerFunc {
	if max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			c.Header("Retry-After", "5")
			respond.Error(c, http.StatusServiceUnavailable, "busy", "server is busy generating tests, try again shortly", nil)
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
