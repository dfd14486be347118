package models

import "time"

// Task statuses.
const (
	TaskStatusToDo       = "To Do"
	TaskStatusInProgress = "In Progress"
	TaskStatusDone       = "Done"
)

// Task priorities, shared with milestones.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Task belongs to exactly one team for its whole life. The assignee must be a
// member of that team or its creator; MilestoneID, when set, must reference a
// milestone of the same team.
type Task struct {
	BaseModel

	TeamID      string `gorm:"type:uuid;not null;index" json:"team_id"`
	CreatedBy   string `gorm:"type:uuid;not null" json:"created_by"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	AssignedToID *string `gorm:"type:uuid;index" json:"assigned_to_id"`
	AssignedByID string  `gorm:"type:uuid" json:"assigned_by_id"`
	MilestoneID  *string `gorm:"type:uuid;index" json:"milestone_id"`

	Status   string     `gorm:"not null;default:'To Do'" json:"status"`
	Priority string     `gorm:"not null;default:'Medium'" json:"priority"`
	DueDate  *time.Time `json:"due_date"`

	Team       *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	AssignedTo *User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
}
