package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/app"
	"github.com/taskflowhq/taskflow/internal/handlers"
	"github.com/taskflowhq/taskflow/internal/middleware"
)

// registerAuthRoutes mounts the public authentication endpoints. These carry
// their own rate limit since they are the only unauthenticated writes.
func registerAuthRoutes(r *gin.Engine, authHandler *handlers.AuthHandler, cfg *app.Config) {
	auth := r.Group("/api/auth")
	if rl := cfg.Server.RateLimit; rl.Enabled && rl.MaxRequests > 0 && rl.Window > 0 {
		auth.Use(middleware.RateLimit(rl.MaxRequests, rl.Window))
	}
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}
}
