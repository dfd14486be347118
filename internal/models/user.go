package models

import (
	"gorm.io/datatypes"
)

// User describes a registered account. Identity fields are immutable after
// registration; profile fields are mutable by the user only.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
	Timezone  string `json:"timezone"`

	NotificationSettings datatypes.JSON `json:"notification_settings,omitempty"`
	ThemeSettings        datatypes.JSON `json:"theme_settings,omitempty"`
}
