// internal/app/store/shares/sharestore.go
package sharestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/shareid"
	"github.com/dalemusser/homeready/internal/domain/models"
)

var (
	ErrNotFound       = errors.New("share not found")
	ErrEmptySelection = errors.New("select at least one room and one item")
	// ErrForeignSelection means a selected room or item belongs to another
	// home.
	ErrForeignSelection = errors.New("selection does not belong to the home")
)

// Store writes and reads share snapshots. Snapshots are never modified after
// Generate; a new export is a new share.
type Store struct {
	s docstore.Store
}

func New(s docstore.Store) *Store {
	return &Store{s: s}
}

func roomsPath(id string) string { return docstore.Sub(models.SharesCollection, id, "rooms") }
func itemsPath(id string) string { return docstore.Sub(models.SharesCollection, id, "items") }

// Generate copies the selected rooms and items into a new share and returns
// its id. The header and every copy are written in one batch. Items may be
// picked without their room; the share then lists them with no room copy.
func (st *Store) Generate(ctx context.Context, homeID, createdBy string, rooms []models.Room, items []models.Item) (string, error) {
	if len(rooms) == 0 || len(items) == 0 {
		return "", ErrEmptySelection
	}

	selected := make(map[string]struct{}, len(rooms))
	included := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if r.HomeID != homeID {
			return "", fmt.Errorf("%w: room %s", ErrForeignSelection, r.ID)
		}
		if _, dup := selected[r.ID]; dup {
			continue
		}
		selected[r.ID] = struct{}{}
		included = append(included, r.ID)
	}
	for _, it := range items {
		if it.HomeID != homeID {
			return "", fmt.Errorf("%w: item %s", ErrForeignSelection, it.ID)
		}
	}

	id, err := shareid.New()
	if err != nil {
		return "", err
	}

	share := models.Share{
		ID:            id,
		HomeID:        homeID,
		CreatedBy:     createdBy,
		Mode:          models.ShareModeReadOnly,
		RoomsIncluded: included,
		CreatedAt:     time.Now().UTC(),
	}
	b := docstore.NewBatch().Set(models.SharesCollection, id, share)
	for _, r := range rooms {
		b.Set(roomsPath(id), r.ID, models.ShareRoom{ID: r.ID, Name: r.Name, Order: r.Order})
	}
	for _, it := range items {
		b.Set(itemsPath(id), it.ID, models.ShareItem{
			ID:             it.ID,
			Name:           it.Name,
			RoomID:         it.RoomID,
			NecessityLevel: it.NecessityLevel,
			Done:           it.Done,
		})
	}
	if err := st.s.Commit(ctx, b); err != nil {
		return "", fmt.Errorf("generate share: %w", err)
	}
	return id, nil
}

// Resolve returns the share header. Ids that cannot be share ids are
// reported as not found without touching the store.
func (st *Store) Resolve(ctx context.Context, id string) (models.Share, error) {
	if !shareid.Valid(id) {
		return models.Share{}, ErrNotFound
	}
	var share models.Share
	if err := st.s.Get(ctx, models.SharesCollection, id, &share); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Share{}, ErrNotFound
		}
		return models.Share{}, err
	}
	return share, nil
}

// ListRooms returns the share's rooms by ascending order.
func (st *Store) ListRooms(ctx context.Context, id string) ([]models.ShareRoom, error) {
	var rooms []models.ShareRoom
	if err := st.s.Find(ctx, roomsPath(id), docstore.Query{}.Sort("order"), &rooms); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []models.ShareRoom{}
	}
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].Order < rooms[j].Order })
	return rooms, nil
}

// ListItems returns the share's items in insertion order.
func (st *Store) ListItems(ctx context.Context, id string) ([]models.ShareItem, error) {
	var items []models.ShareItem
	if err := st.s.Find(ctx, itemsPath(id), docstore.Query{}, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ShareItem{}
	}
	return items, nil
}

// Snapshot is a share with its rooms and items, as served publicly.
type Snapshot struct {
	Share models.Share       `json:"share"`
	Rooms []models.ShareRoom `json:"rooms"`
	Items []models.ShareItem `json:"items"`
}

// Load resolves a share and reads both sub-collections.
func (st *Store) Load(ctx context.Context, id string) (Snapshot, error) {
	share, err := st.Resolve(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	rooms, err := st.ListRooms(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	items, err := st.ListItems(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Share: share, Rooms: rooms, Items: items}, nil
}
