package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/middleware"
)

// currentPrincipal extracts the authenticated principal the auth middleware
// stored on the request. The boolean is false on unauthenticated requests.
func currentPrincipal(c *gin.Context) (authz.Principal, bool) {
	value, exists := c.Get(middleware.CtxPrincipalKey)
	if !exists {
		return authz.Principal{}, false
	}
	principal, ok := value.(authz.Principal)
	return principal, ok
}
