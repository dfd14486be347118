package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/app"
	iauth "github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/handlers"
	"github.com/taskflowhq/taskflow/internal/middleware"
	"github.com/taskflowhq/taskflow/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware, and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, mailer mail.Mailer) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	engine, err := authz.NewEngine(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(db, jwt)
	if err != nil {
		return nil, err
	}
	teamHandler, err := handlers.NewTeamHandler(db, engine)
	if err != nil {
		return nil, err
	}
	invitationHandler, err := handlers.NewInvitationHandler(db, engine, mailer)
	if err != nil {
		return nil, err
	}
	taskHandler, err := handlers.NewTaskHandler(db, engine)
	if err != nil {
		return nil, err
	}
	milestoneHandler, err := handlers.NewMilestoneHandler(db, engine)
	if err != nil {
		return nil, err
	}
	commentHandler, err := handlers.NewCommentHandler(db, engine)
	if err != nil {
		return nil, err
	}
	attachmentHandler, err := handlers.NewAttachmentHandler(db, engine, cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}
	timeLogHandler, err := handlers.NewTimeLogHandler(db, engine)
	if err != nil {
		return nil, err
	}
	messageHandler, err := handlers.NewMessageHandler(db, engine)
	if err != nil {
		return nil, err
	}

	registerAuthRoutes(r, authHandler, cfg)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	api.GET("/auth/me", authHandler.Me)

	registerUserRoutes(api, userHandler)
	registerTeamRoutes(api, teamHandler, invitationHandler, taskHandler, milestoneHandler, messageHandler)
	registerInvitationRoutes(api, invitationHandler)
	registerTaskRoutes(api, taskHandler, commentHandler, attachmentHandler, timeLogHandler)
	registerMilestoneRoutes(api, milestoneHandler)
	registerContentRoutes(api, commentHandler, attachmentHandler, timeLogHandler, messageHandler)

	return r, nil
}
