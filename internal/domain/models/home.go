// internal/domain/models/home.go
package models

import "time"

// Collection names shared by the store packages.
const (
	HomesCollection       = "homes"
	RoomsCollection       = "rooms"
	ItemsCollection       = "items"
	InvitationsCollection = "invitations"
	SharesCollection      = "shares"
	UsersCollection       = "users"
)

// Home is the tenant a set of principals share.
//
// Members and PendingInvites are sets. They are only ever mutated with
// add-to-set / pull so concurrent flows (invite, accept, decline, sign-in
// reconciliation) cannot overwrite each other.
type Home struct {
	ID             string    `bson:"_id" json:"id"`
	OwnerID        string    `bson:"ownerId" json:"ownerId"`
	Name           string    `bson:"name" json:"name"`
	Members        []string  `bson:"members" json:"members"`
	PendingInvites []string  `bson:"pendingInvites" json:"pendingInvites"`
	Palette        Palette   `bson:"palette" json:"palette"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// HasMember reports whether uid owns the home or is one of its members.
func (h Home) HasMember(uid string) bool {
	if uid == "" {
		return false
	}
	if h.OwnerID == uid {
		return true
	}
	for _, m := range h.Members {
		if m == uid {
			return true
		}
	}
	return false
}
