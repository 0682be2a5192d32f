package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call a handler method directly.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures writes test records straight to the document store, bypassing
// the validation done by the store packages.
type Fixtures struct {
	s docstore.Store
	t *testing.T
}

// NewFixtures creates a new Fixtures instance for the given store.
func NewFixtures(t *testing.T, s docstore.Store) *Fixtures {
	t.Helper()
	return &Fixtures{s: s, t: t}
}

// Store returns the underlying document store.
func (f *Fixtures) Store() docstore.Store {
	return f.s
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// CreateHome creates a home owned by ownerID with the given members.
func (f *Fixtures) CreateHome(ctx context.Context, ownerID, name string, members ...string) models.Home {
	f.t.Helper()
	if members == nil {
		members = []string{}
	}
	h := models.Home{
		ID:             newID(),
		OwnerID:        ownerID,
		Name:           name,
		Members:        members,
		PendingInvites: []string{},
		Palette:        models.DefaultPalette,
		CreatedAt:      time.Now().UTC(),
	}
	if err := f.s.Create(ctx, models.HomesCollection, h.ID, h); err != nil {
		f.t.Fatalf("failed to create test home: %v", err)
	}
	return h
}

// CreateRoom creates a room in home at order.
func (f *Fixtures) CreateRoom(ctx context.Context, homeID, name string, order int) models.Room {
	f.t.Helper()
	r := models.Room{
		ID:        newID(),
		HomeID:    homeID,
		Name:      name,
		NameKey:   normalize.Key(name),
		Order:     order,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.s.Create(ctx, models.RoomsCollection, r.ID, r); err != nil {
		f.t.Fatalf("failed to create test room: %v", err)
	}
	return r
}

// CreateItem creates a pending item in room.
func (f *Fixtures) CreateItem(ctx context.Context, room models.Room, name string, n models.Necessity) models.Item {
	f.t.Helper()
	now := time.Now().UTC()
	it := models.Item{
		ID:             newID(),
		HomeID:         room.HomeID,
		RoomID:         room.ID,
		Name:           name,
		NameKey:        normalize.Key(name),
		NecessityLevel: n,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := f.s.Create(ctx, models.ItemsCollection, it.ID, it); err != nil {
		f.t.Fatalf("failed to create test item: %v", err)
	}
	return it
}

// CreateInvitation stores inv as given, assigning an id when it has none.
func (f *Fixtures) CreateInvitation(ctx context.Context, inv models.Invitation) models.Invitation {
	f.t.Helper()
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.EmailLower == "" {
		inv.EmailLower = normalize.Email(inv.Email)
	}
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	if err := f.s.Create(ctx, models.InvitationsCollection, inv.ID, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}

// CreateProfile stores a profile for uid.
func (f *Fixtures) CreateProfile(ctx context.Context, uid, email string) models.Profile {
	f.t.Helper()
	p := models.Profile{
		UID:         uid,
		Email:       email,
		EmailLower:  normalize.Email(email),
		DisplayName: uid,
		CreatedAt:   time.Now().UTC(),
	}
	if err := f.s.Create(ctx, models.UsersCollection, uid, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// GetHome reloads a home.
func (f *Fixtures) GetHome(ctx context.Context, id string) models.Home {
	f.t.Helper()
	var h models.Home
	if err := f.s.Get(ctx, models.HomesCollection, id, &h); err != nil {
		f.t.Fatalf("failed to load home %s: %v", id, err)
	}
	return h
}
