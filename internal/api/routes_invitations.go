package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow/internal/handlers"
)

func registerInvitationRoutes(api *gin.RouterGroup, invitationHandler *handlers.InvitationHandler) {
	invitations := api.Group("/invitations")
	{
		invitations.GET("", invitationHandler.ListPending)
		invitations.POST("/:id/accept", invitationHandler.Accept)
		invitations.POST("/:id/decline", invitationHandler.Decline)
	}
}
