// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound   = errors.New("profile not found")
	ErrMissingUID = errors.New("principal id is required")
)

// Store mirrors signed-in principals into users/{uid}.
type Store struct {
	s docstore.Store
}

func New(s docstore.Store) *Store {
	return &Store{s: s}
}

// Sync upserts the profile for p. Identity fields are refreshed on every
// sign-in; createdAt is written only when the profile is first created.
func (st *Store) Sync(ctx context.Context, p models.Principal) (models.Profile, error) {
	if p.UID == "" {
		return models.Profile{}, ErrMissingUID
	}
	u := docstore.Update{
		Set: bson.M{
			"uid":         p.UID,
			"email":       p.Email,
			"emailLower":  normalize.Email(p.Email),
			"displayName": p.DisplayName,
			"photoURL":    p.PhotoURL,
		},
		SetOnInsert: bson.M{"createdAt": time.Now().UTC()},
	}
	if err := st.s.Upsert(ctx, models.UsersCollection, p.UID, u); err != nil {
		return models.Profile{}, fmt.Errorf("sync profile %s: %w", p.UID, err)
	}
	return st.Get(ctx, p.UID)
}

// Get returns the profile for uid.
func (st *Store) Get(ctx context.Context, uid string) (models.Profile, error) {
	var p models.Profile
	if err := st.s.Get(ctx, models.UsersCollection, uid, &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

// FindByEmail returns every profile registered under email (case-insensitive).
func (st *Store) FindByEmail(ctx context.Context, email string) ([]models.Profile, error) {
	key := normalize.Email(email)
	if key == "" {
		return []models.Profile{}, nil
	}
	var out []models.Profile
	if err := st.s.Find(ctx, models.UsersCollection, docstore.Where("emailLower", key), &out); err != nil {
		return nil, err
	}
	return out, nil
}
