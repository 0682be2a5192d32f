// internal/domain/models/invitation.go
package models

import "time"

// InvitationStatus is the lifecycle state of an invitation.
// pending transitions exactly once to accepted or denied.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDenied   InvitationStatus = "denied"
)

// Invitation is an offer for an email address to join a home.
// At most one pending invitation exists per (HomeID, EmailLower).
type Invitation struct {
	ID          string           `bson:"_id" json:"id"`
	HomeID      string           `bson:"homeId" json:"homeId"`
	HomeName    string           `bson:"homeName" json:"homeName"`
	CreatedBy   string           `bson:"createdBy" json:"createdBy"`
	Email       string           `bson:"email" json:"email"`
	EmailLower  string           `bson:"emailLower" json:"emailLower"`
	Status      InvitationStatus `bson:"status" json:"status"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	RespondedAt *time.Time       `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	InviteeUID  string           `bson:"inviteeUid,omitempty" json:"inviteeUid,omitempty"`
}
