package models

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation records an offer to join a team. At most one pending invitation
// exists per (team, invitee); accepting creates the membership, declining
// only resolves the invitation.
type Invitation struct {
	BaseModel

	TeamID    string `gorm:"type:uuid;not null;index" json:"team_id"`
	InviterID string `gorm:"type:uuid;not null" json:"inviter_id"`
	InviteeID string `gorm:"type:uuid;not null;index" json:"invitee_id"`
	Status    string `gorm:"not null;default:pending" json:"status"`

	Team    *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Inviter *User `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
	Invitee *User `gorm:"foreignKey:InviteeID" json:"invitee,omitempty"`
}
