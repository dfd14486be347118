package models

// Team groups users around shared tasks. CreatedBy is immutable and grants
// elevated rights independently of membership rows: the creator keeps those
// rights even without an explicit Membership record.
type Team struct {
	BaseModel

	Name      string `gorm:"not null" json:"name"`
	CreatedBy string `gorm:"type:uuid;not null;index" json:"created_by"`

	Creator *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

// Membership is the explicit join record granting a user standing within a
// team. The pair is unique; the team creator may or may not hold one.
type Membership struct {
	BaseModel

	TeamID string `gorm:"type:uuid;not null;uniqueIndex:idx_membership_pair" json:"team_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_membership_pair" json:"user_id"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
