package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func requestTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "REQUEST_TOO_LARGE",
			"message": "Request body exceeds maximum allowed size",
		},
	})
}

// BodyLimit caps request bodies at maxBytes. API bodies here are small
// JSON payloads; feeds are fetched by the service itself, never uploaded.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			requestTooLarge(c)
			return
		}

		// Chunked requests carry no Content-Length; the reader enforces
		// the cap for those
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
