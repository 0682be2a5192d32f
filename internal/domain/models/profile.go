// internal/domain/models/profile.go
package models

import "time"

// Profile mirrors an authenticated principal. It is keyed by the principal id
// and used to resolve invitations by email.
type Profile struct {
	UID         string    `bson:"uid" json:"uid"`
	Email       string    `bson:"email" json:"email"`
	EmailLower  string    `bson:"emailLower" json:"emailLower"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	PhotoURL    string    `bson:"photoURL" json:"photoURL"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Principal is an identity as reported by the sign-in provider.
type Principal struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}
