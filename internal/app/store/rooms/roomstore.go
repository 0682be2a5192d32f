// internal/app/store/rooms/roomstore.go
package roomstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/htmlsanitize"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound         = errors.New("room not found")
	ErrEmptyName        = errors.New("room name is required")
	ErrDuplicateName    = errors.New("a room with this name already exists in the home")
	ErrInvalidOrder     = errors.New("room order must not be negative")
	ErrInvalidDirection = errors.New(`direction must be "up" or "down"`)
)

// Direction is the way Move shifts a room.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	}
	return "", ErrInvalidDirection
}

// Store manages the ordered rooms of each home.
//
// Order values within a home are kept a dense zero-based permutation: Move
// and Delete rewrite every sibling's order in one batch. Names are unique per
// home after normalize.Key; the pre-check gives the user-facing error and the
// unique (homeId, nameKey) index catches concurrent writers.
type Store struct {
	s docstore.Store
}

func New(s docstore.Store) *Store {
	return &Store{s: s}
}

// Create adds a room at the caller-supplied order. Siblings are not
// renumbered; callers normally pass the current room count.
func (st *Store) Create(ctx context.Context, homeID, name string, order int) (models.Room, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Room{}, ErrEmptyName
	}
	if err := htmlsanitize.CheckText(name); err != nil {
		return models.Room{}, fmt.Errorf("room name: %w", err)
	}
	if order < 0 {
		return models.Room{}, ErrInvalidOrder
	}
	siblings, err := st.List(ctx, homeID)
	if err != nil {
		return models.Room{}, err
	}
	if taken(siblings, name, "") {
		return models.Room{}, ErrDuplicateName
	}

	room := models.Room{
		ID:        primitive.NewObjectID().Hex(),
		HomeID:    homeID,
		Name:      name,
		NameKey:   normalize.Key(name),
		Order:     order,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.s.Create(ctx, models.RoomsCollection, room.ID, room); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return models.Room{}, ErrDuplicateName
		}
		return models.Room{}, err
	}
	return room, nil
}

// Get returns the room with id.
func (st *Store) Get(ctx context.Context, id string) (models.Room, error) {
	var r models.Room
	if err := st.s.Get(ctx, models.RoomsCollection, id, &r); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Room{}, ErrNotFound
		}
		return models.Room{}, err
	}
	return r, nil
}

// List returns the rooms of a home ordered by order ascending.
func (st *Store) List(ctx context.Context, homeID string) ([]models.Room, error) {
	var rooms []models.Room
	if err := st.s.Find(ctx, models.RoomsCollection, docstore.Where("homeId", homeID).Sort("order"), &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Rename changes a room's name. Renaming a room to its own name (in any
// case or accent form) is allowed.
func (st *Store) Rename(ctx context.Context, id, name string) error {
	name = normalize.Name(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := htmlsanitize.CheckText(name); err != nil {
		return fmt.Errorf("room name: %w", err)
	}
	room, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	siblings, err := st.List(ctx, room.HomeID)
	if err != nil {
		return err
	}
	if taken(siblings, name, id) {
		return ErrDuplicateName
	}

	err = st.s.Update(ctx, models.RoomsCollection, id, docstore.Update{
		Set: bson.M{"name": name, "nameKey": normalize.Key(name)},
	})
	switch {
	case errors.Is(err, docstore.ErrDuplicate):
		return ErrDuplicateName
	case errors.Is(err, docstore.ErrNotFound):
		return ErrNotFound
	}
	return err
}

// Move swaps a room with its neighbour in direction d. Moving the first room
// up or the last room down does nothing. The whole list is renumbered in one
// batch so a concurrent reorder can win but never leave gaps or duplicates.
func (st *Store) Move(ctx context.Context, id string, d Direction) error {
	if d != Up && d != Down {
		return ErrInvalidDirection
	}
	room, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	rooms, err := st.List(ctx, room.HomeID)
	if err != nil {
		return err
	}

	idx := -1
	for i, r := range rooms {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	target := idx - 1
	if d == Down {
		target = idx + 1
	}
	if target < 0 || target >= len(rooms) {
		return nil
	}
	rooms[idx], rooms[target] = rooms[target], rooms[idx]

	if err := st.s.Commit(ctx, renumber(rooms)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			// A sibling was deleted between the read and the write.
			return fmt.Errorf("move room %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("move room %s: %w", id, err)
	}
	return nil
}

// Delete removes a room and every item in it in one batch, then closes the
// gap in the remaining rooms' order. Deleting a missing room does nothing.
func (st *Store) Delete(ctx context.Context, id string) error {
	room, err := st.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var items []models.Item
	if err := st.s.Find(ctx, models.ItemsCollection, docstore.Where("roomId", id), &items); err != nil {
		return err
	}
	rooms, err := st.List(ctx, room.HomeID)
	if err != nil {
		return err
	}

	rest := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.ID != id {
			rest = append(rest, r)
		}
	}
	b := renumber(rest)
	for _, it := range items {
		b.Delete(models.ItemsCollection, it.ID)
	}
	b.Delete(models.RoomsCollection, id)

	if err := st.s.Commit(ctx, b); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

// renumber writes order = position for every room, including unchanged
// ones, so each batch carries a complete permutation.
func renumber(rooms []models.Room) *docstore.Batch {
	b := docstore.NewBatch()
	for i, r := range rooms {
		b.Update(models.RoomsCollection, r.ID, docstore.Update{Set: bson.M{"order": i}})
	}
	return b
}

// taken reports whether name collides with a sibling other than exceptID.
func taken(siblings []models.Room, name, exceptID string) bool {
	key := normalize.Key(name)
	for _, r := range siblings {
		if r.ID != exceptID && normalize.Key(r.Name) == key {
			return true
		}
	}
	return false
}
