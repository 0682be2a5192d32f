// internal/domain/models/share.go
package models

import "time"

// ShareModeReadOnly is the only share mode.
const ShareModeReadOnly = "readonly"

// Share is the header of a frozen, publicly readable export of part of a
// home. Its rooms and items live in the "rooms" and "items" sub-collections
// of the share and are copies, never references.
type Share struct {
	ID            string    `bson:"_id" json:"id"`
	HomeID        string    `bson:"homeId" json:"homeId"`
	CreatedBy     string    `bson:"createdBy" json:"createdBy"`
	Mode          string    `bson:"mode" json:"mode"`
	RoomsIncluded []string  `bson:"roomsIncluded" json:"roomsIncluded"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// ShareRoom is the frozen copy of a room.
type ShareRoom struct {
	ID    string `bson:"_id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Order int    `bson:"order" json:"order"`
}

// ShareItem is the frozen copy of a checklist item.
type ShareItem struct {
	ID             string    `bson:"_id" json:"id"`
	Name           string    `bson:"name" json:"name"`
	RoomID         string    `bson:"roomId" json:"roomId"`
	NecessityLevel Necessity `bson:"necessityLevel" json:"necessityLevel"`
	Done           bool      `bson:"done" json:"done"`
}
