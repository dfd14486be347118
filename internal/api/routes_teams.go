package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/handlers"
)

// registerTeamRoutes mounts the team-scoped endpoints. Authorization happens
// in the services: these routes only require authentication.
func registerTeamRoutes(
	api *gin.RouterGroup,
	teamHandler *handlers.TeamHandler,
	invitationHandler *handlers.InvitationHandler,
	taskHandler *handlers.TaskHandler,
	milestoneHandler *handlers.MilestoneHandler,
	messageHandler *handlers.MessageHandler,
) {
	teams := api.Group("/teams")
	{
		teams.GET("", teamHandler.List)
		teams.POST("", teamHandler.Create)
		teams.GET("/:id", teamHandler.Get)
		teams.DELETE("/:id", teamHandler.Delete)

		teams.GET("/:id/members", teamHandler.Members)
		teams.POST("/:id/members", teamHandler.AddMember)
		teams.DELETE("/:id/members/:userId", teamHandler.RemoveMember)

		teams.POST("/:id/invitations", invitationHandler.Invite)

		teams.GET("/:id/tasks", taskHandler.ListForTeam)
		teams.POST("/:id/tasks", taskHandler.Create)

		teams.GET("/:id/milestones", milestoneHandler.ListForTeam)
		teams.POST("/:id/milestones", milestoneHandler.Create)

		teams.GET("/:id/messages", messageHandler.ListRecent)
		teams.POST("/:id/messages", messageHandler.Post)
	}
}
