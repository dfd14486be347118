package models

import "time"

// Milestone statuses. Status and ProgressPercentage are derived from the
// states of tasks referencing the milestone and are never set directly by
// callers; they are recomputed on every listing.
const (
	MilestoneNotStarted = "Not Started"
	MilestoneInProgress = "In Progress"
	MilestoneCompleted  = "Completed"
	MilestoneOverdue    = "Overdue"
)

type Milestone struct {
	BaseModel

	TeamID      string `gorm:"type:uuid;not null;index" json:"team_id"`
	CreatedBy   string `gorm:"type:uuid;not null" json:"created_by"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Priority string     `gorm:"not null;default:'Medium'" json:"priority"`
	DueDate  *time.Time `json:"due_date"`

	Status             string `gorm:"not null;default:'Not Started'" json:"status"`
	ProgressPercentage int    `gorm:"not null;default:0" json:"progress_percentage"`

	Team    *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Creator *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}
