package models

import "gorm.io/datatypes"

// TeamMessage is team-scoped chat. UserID is the author; authors delete their
// own messages, the team creator may delete any.
type TeamMessage struct {
	BaseModel

	TeamID      string         `gorm:"type:uuid;not null;index" json:"team_id"`
	UserID      string         `gorm:"type:uuid;not null" json:"user_id"`
	Message     string         `gorm:"not null" json:"message"`
	MessageType string         `gorm:"not null;default:text" json:"message_type"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
