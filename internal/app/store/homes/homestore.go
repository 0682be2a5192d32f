// internal/app/store/homes/homestore.go
package homestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/htmlsanitize"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound       = errors.New("home not found")
	ErrEmptyName      = errors.New("home name is required")
	ErrInvalidPalette = errors.New("palette colors must be #rgb or #rrggbb")
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// SeedItem is an item created in a seeded room.
type SeedItem struct {
	Name      string
	Necessity models.Necessity
}

// SeedRoom is a room created with a new home when seeding is requested.
type SeedRoom struct {
	Name  string
	Items []SeedItem
}

// DefaultSeeds are the starter rooms of a new home, in display order.
func DefaultSeeds() []SeedRoom {
	return []SeedRoom{
		{Name: "Cozinha", Items: []SeedItem{
			{"Liquidificador", models.NecessityHigh},
			{"Panela", models.NecessityHigh},
			{"Jogo de pratos", models.NecessityMedium},
		}},
		{Name: "Quarto", Items: []SeedItem{
			{"Cama", models.NecessityHigh},
			{"Travesseiros", models.NecessityMedium},
			{"Abajur", models.NecessityLow},
		}},
	}
}

type Store struct {
	s docstore.Store
}

func New(s docstore.Store) *Store {
	return &Store{s: s}
}

// CreateInput describes a new home. A nil Palette selects the default.
type CreateInput struct {
	OwnerID string
	Name    string
	Palette *models.Palette
	Seed    bool
}

// Create writes the home and, when requested, its starter rooms and items in
// a single batch.
func (st *Store) Create(ctx context.Context, in CreateInput) (models.Home, error) {
	name := normalize.Name(in.Name)
	if name == "" {
		return models.Home{}, ErrEmptyName
	}
	if err := htmlsanitize.CheckText(name); err != nil {
		return models.Home{}, fmt.Errorf("home name: %w", err)
	}
	palette := models.DefaultPalette
	if in.Palette != nil {
		if err := ValidatePalette(*in.Palette); err != nil {
			return models.Home{}, err
		}
		palette = *in.Palette
	}

	now := time.Now().UTC()
	home := models.Home{
		ID:             primitive.NewObjectID().Hex(),
		OwnerID:        in.OwnerID,
		Name:           name,
		Members:        []string{},
		PendingInvites: []string{},
		Palette:        palette,
		CreatedAt:      now,
	}

	b := docstore.NewBatch().Set(models.HomesCollection, home.ID, home)
	if in.Seed {
		for order, seed := range DefaultSeeds() {
			room := models.Room{
				ID:        primitive.NewObjectID().Hex(),
				HomeID:    home.ID,
				Name:      seed.Name,
				NameKey:   normalize.Key(seed.Name),
				Order:     order,
				CreatedAt: now,
			}
			b.Set(models.RoomsCollection, room.ID, room)
			for _, si := range seed.Items {
				item := models.Item{
					ID:             primitive.NewObjectID().Hex(),
					HomeID:         home.ID,
					RoomID:         room.ID,
					Name:           si.Name,
					NameKey:        normalize.Key(si.Name),
					NecessityLevel: si.Necessity,
					CreatedAt:      now,
					UpdatedAt:      now,
				}
				b.Set(models.ItemsCollection, item.ID, item)
			}
		}
	}

	if err := st.s.Commit(ctx, b); err != nil {
		return models.Home{}, fmt.Errorf("create home: %w", err)
	}
	return home, nil
}

// Get returns the home with id.
func (st *Store) Get(ctx context.Context, id string) (models.Home, error) {
	var h models.Home
	if err := st.s.Get(ctx, models.HomesCollection, id, &h); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Home{}, ErrNotFound
		}
		return models.Home{}, err
	}
	return h, nil
}

// ListForPrincipal returns the homes uid owns or is a member of, oldest first.
func (st *Store) ListForPrincipal(ctx context.Context, uid string) ([]models.Home, error) {
	var owned, joined []models.Home
	if err := st.s.Find(ctx, models.HomesCollection, docstore.Where("ownerId", uid), &owned); err != nil {
		return nil, err
	}
	if err := st.s.Find(ctx, models.HomesCollection, docstore.Query{}.Contains("members", uid), &joined); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(owned)+len(joined))
	out := make([]models.Home, 0, len(owned)+len(joined))
	for _, h := range append(owned, joined...) {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdatePalette replaces the palette of a home.
func (st *Store) UpdatePalette(ctx context.Context, id string, p models.Palette) error {
	if err := ValidatePalette(p); err != nil {
		return err
	}
	err := st.s.Update(ctx, models.HomesCollection, id, docstore.Update{Set: bson.M{"palette": p}})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ValidatePalette requires all four colors as hex triplets.
func ValidatePalette(p models.Palette) error {
	for _, c := range []string{p.Primary, p.Secondary, p.Accent, p.Neutral} {
		if !hexColor.MatchString(c) {
			return fmt.Errorf("%w: %q", ErrInvalidPalette, c)
		}
	}
	return nil
}
