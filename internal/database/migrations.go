package database

import (
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.Membership{},
		&models.Invitation{},
		&models.Task{},
		&models.Milestone{},
		&models.Comment{},
		&models.Attachment{},
		&models.TimeLog{},
		&models.TeamMessage{},
	)
}
