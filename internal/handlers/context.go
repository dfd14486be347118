package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext returns the request-scoped context, falling back to
// context.Background when the gin context carries no request.
func requestContext(c *gin.Context) context.Context {
	if c != nil && c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}
