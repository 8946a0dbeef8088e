package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Success writes the success envelope with payload stored under key.
func Success(c *gin.Context, status int, key string, payload interface{}) {
	JSON(c, status, gin.H{
		"success": true,
		key:       payload,
	})
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, key string, payload interface{}) {
	Success(c, http.StatusOK, key, payload)
}
