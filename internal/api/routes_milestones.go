package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/handlers"
)

func registerMilestoneRoutes(api *gin.RouterGroup, milestoneHandler *handlers.MilestoneHandler) {
	milestones := api.Group("/milestones")
	{
		milestones.GET("", milestoneHandler.ListAll)
		milestones.GET("/:id/tasks", milestoneHandler.Tasks)
		milestones.PATCH("/:id", milestoneHandler.Update)
		milestones.DELETE("/:id", milestoneHandler.Delete)
	}
}
