// internal/domain/models/item.go
package models

import (
	"strings"
	"time"
)

// Necessity is the priority classification of a checklist item.
type Necessity string

const (
	NecessityHigh   Necessity = "high"
	NecessityMedium Necessity = "medium"
	NecessityLow    Necessity = "low"
)

// ParseNecessity accepts high, medium or low in any case.
func ParseNecessity(s string) (Necessity, bool) {
	switch n := Necessity(strings.ToLower(strings.TrimSpace(s))); n {
	case NecessityHigh, NecessityMedium, NecessityLow:
		return n, true
	}
	return "", false
}

// Rank orders necessities high(0) < medium(1) < low(2). Unknown values rank last.
func (n Necessity) Rank() int {
	switch n {
	case NecessityHigh:
		return 0
	case NecessityMedium:
		return 1
	case NecessityLow:
		return 2
	}
	return 3
}

// Item is a checklist entry belonging to one room.
type Item struct {
	ID             string    `bson:"_id" json:"id"`
	HomeID         string    `bson:"homeId" json:"homeId"`
	RoomID         string    `bson:"roomId" json:"roomId"`
	Name           string    `bson:"name" json:"name"`
	NameKey        string    `bson:"nameKey" json:"-"`
	NecessityLevel Necessity `bson:"necessityLevel" json:"necessityLevel"`
	Done           bool      `bson:"done" json:"done"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}
