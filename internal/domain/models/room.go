// internal/domain/models/room.go
package models

import "time"

// Room is an ordered container of checklist items inside a home.
//
// Within a home, Order values are a contiguous zero-based permutation and
// NameKey (the normalized name) is unique.
type Room struct {
	ID        string    `bson:"_id" json:"id"`
	HomeID    string    `bson:"homeId" json:"homeId"`
	Name      string    `bson:"name" json:"name"`
	NameKey   string    `bson:"nameKey" json:"-"`
	Order     int       `bson:"order" json:"order"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
