package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/handlers"
)

// registerContentRoutes mounts the endpoints addressing task-scoped content
// and chat by its own id.
func registerContentRoutes(
	api *gin.RouterGroup,
	commentHandler *handlers.CommentHandler,
	attachmentHandler *handlers.AttachmentHandler,
	timeLogHandler *handlers.TimeLogHandler,
	messageHandler *handlers.MessageHandler,
) {
	api.DELETE("/comments/:id", commentHandler.Delete)

	api.GET("/attachments/:id/download", attachmentHandler.Download)
	api.DELETE("/attachments/:id", attachmentHandler.Delete)

	timeLogs := api.Group("/time-logs")
	{
		timeLogs.POST("/stop", timeLogHandler.Stop)
		timeLogs.GET("/active", timeLogHandler.Active)
		timeLogs.DELETE("/:id", timeLogHandler.Delete)
	}

	api.DELETE("/messages/:id", messageHandler.Delete)
}
