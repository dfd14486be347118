package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/handlers"
)

func registerTaskRoutes(
	api *gin.RouterGroup,
	taskHandler *handlers.TaskHandler,
	commentHandler *handlers.CommentHandler,
	attachmentHandler *handlers.AttachmentHandler,
	timeLogHandler *handlers.TimeLogHandler,
) {
	tasks := api.Group("/tasks")
	{
		tasks.GET("/assigned", taskHandler.ListAssigned)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PATCH("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)

		tasks.GET("/:id/comments", commentHandler.ListForTask)
		tasks.POST("/:id/comments", commentHandler.Create)

		tasks.GET("/:id/attachments", attachmentHandler.ListForTask)
		tasks.POST("/:id/attachments", attachmentHandler.Upload)

		tasks.GET("/:id/time-logs", timeLogHandler.ListForTask)
		tasks.POST("/:id/time-logs/start", timeLogHandler.Start)
	}
}
