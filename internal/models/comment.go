package models

// Comment is task-scoped discussion. UserID is the author; author-only delete
// rights apply regardless of team membership.
type Comment struct {
	BaseModel

	TaskID  string `gorm:"type:uuid;not null;index" json:"task_id"`
	UserID  string `gorm:"type:uuid;not null" json:"user_id"`
	Content string `gorm:"not null" json:"content"`

	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
