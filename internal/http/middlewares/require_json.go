package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects mutating requests whose body is not JSON. The proof
// upload endpoint is the one multipart surface, so multipart/form-data is
// allowed through as well.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := strings.ToLower(c.GetHeader("Content-Type"))
			// allow "application/json; charset=utf-8"
			if strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "multipart/form-data") {
				break
			}
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": gin.H{
					"code":    "unsupported_media_type",
					"message": "Content-Type must be application/json",
				},
			})
			return
		}
		c.Next()
	}
}
