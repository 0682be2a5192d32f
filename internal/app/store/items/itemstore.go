// internal/app/store/items/itemstore.go
package itemstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/htmlsanitize"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound         = errors.New("item not found")
	ErrRoomNotFound     = errors.New("room not found in this home")
	ErrEmptyName        = errors.New("item name is required")
	ErrDuplicateName    = errors.New("an item with this name already exists in the room")
	ErrInvalidNecessity = errors.New(`necessity must be "high", "medium" or "low"`)
)

// Store holds the checklist items of every room. Item names are unique per
// room after normalize.Key.
type Store struct {
	s docstore.Store
}

func New(s docstore.Store) *Store {
	return &Store{s: s}
}

// Create adds a pending item to a room of homeID.
func (st *Store) Create(ctx context.Context, homeID, roomID, name string, n models.Necessity) (models.Item, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Item{}, ErrEmptyName
	}
	if err := htmlsanitize.CheckText(name); err != nil {
		return models.Item{}, fmt.Errorf("item name: %w", err)
	}
	if n.Rank() > 2 {
		return models.Item{}, ErrInvalidNecessity
	}

	var room models.Room
	if err := st.s.Get(ctx, models.RoomsCollection, roomID, &room); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Item{}, ErrRoomNotFound
		}
		return models.Item{}, err
	}
	if room.HomeID != homeID {
		return models.Item{}, ErrRoomNotFound
	}

	siblings, err := st.ListByRoom(ctx, roomID)
	if err != nil {
		return models.Item{}, err
	}
	if taken(siblings, name, "") {
		return models.Item{}, ErrDuplicateName
	}

	now := time.Now().UTC()
	item := models.Item{
		ID:             primitive.NewObjectID().Hex(),
		HomeID:         homeID,
		RoomID:         roomID,
		Name:           name,
		NameKey:        normalize.Key(name),
		NecessityLevel: n,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := st.s.Create(ctx, models.ItemsCollection, item.ID, item); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return models.Item{}, ErrDuplicateName
		}
		return models.Item{}, err
	}
	return item, nil
}

// Get returns the item with id.
func (st *Store) Get(ctx context.Context, id string) (models.Item, error) {
	var it models.Item
	if err := st.s.Get(ctx, models.ItemsCollection, id, &it); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, err
	}
	return it, nil
}

// Patch is a partial item update; nil fields are left unchanged.
type Patch struct {
	Name           *string
	NecessityLevel *models.Necessity
	Done           *bool
}

// Update applies p and stamps updatedAt. Only the fields present in p are
// written, so concurrent edits of different fields do not overwrite each
// other.
func (st *Store) Update(ctx context.Context, id string, p Patch) error {
	set := bson.M{"updatedAt": time.Now().UTC()}

	if p.NecessityLevel != nil {
		if p.NecessityLevel.Rank() > 2 {
			return ErrInvalidNecessity
		}
		set["necessityLevel"] = *p.NecessityLevel
	}
	if p.Done != nil {
		set["done"] = *p.Done
	}
	if p.Name != nil {
		name := normalize.Name(*p.Name)
		if name == "" {
			return ErrEmptyName
		}
		if err := htmlsanitize.CheckText(name); err != nil {
			return fmt.Errorf("item name: %w", err)
		}
		item, err := st.Get(ctx, id)
		if err != nil {
			return err
		}
		siblings, err := st.ListByRoom(ctx, item.RoomID)
		if err != nil {
			return err
		}
		if taken(siblings, name, id) {
			return ErrDuplicateName
		}
		set["name"] = name
		set["nameKey"] = normalize.Key(name)
	}

	err := st.s.Update(ctx, models.ItemsCollection, id, docstore.Update{Set: set})
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, docstore.ErrDuplicate):
		return ErrDuplicateName
	}
	return err
}

// Delete removes an item. Deleting a missing item is not an error.
func (st *Store) Delete(ctx context.Context, id string) error {
	return st.s.Delete(ctx, models.ItemsCollection, id)
}

// ListByHome returns every item of a home in creation order.
func (st *Store) ListByHome(ctx context.Context, homeID string) ([]models.Item, error) {
	var items []models.Item
	if err := st.s.Find(ctx, models.ItemsCollection, docstore.Where("homeId", homeID).Sort("createdAt"), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByRoom returns the items of a room in creation order.
func (st *Store) ListByRoom(ctx context.Context, roomID string) ([]models.Item, error) {
	var items []models.Item
	if err := st.s.Find(ctx, models.ItemsCollection, docstore.Where("roomId", roomID).Sort("createdAt"), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func taken(siblings []models.Item, name, exceptID string) bool {
	key := normalize.Key(name)
	for _, it := range siblings {
		if it.ID != exceptID && normalize.Key(it.Name) == key {
			return true
		}
	}
	return false
}
