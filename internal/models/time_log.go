package models

import "time"

// TimeLog records time spent on a task. At most one log may be active per
// user globally; starting a timer elsewhere force-stops the previous one.
type TimeLog struct {
	BaseModel

	TaskID      string     `gorm:"type:uuid;not null;index" json:"task_id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"user_id"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Duration    *int64     `gorm:"column:duration_minutes" json:"duration_minutes"`
	Description string     `json:"description"`
	IsActive    bool       `gorm:"not null;default:false;index" json:"is_active"`

	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}
