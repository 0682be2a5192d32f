// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

/*
EnsureAll is called at startup and is idempotent. Each collection's set is
ensured separately and problems are aggregated so startup fails fast with
every problem visible.

The unique indexes back the name pre-checks done by the room and item stores
and the one-pending-invitation rule; the pre-checks stay as the user-facing
path and the indexes close the race between two concurrent writers.
*/
func EnsureAll(ctx context.Context, s docstore.Store) error {
	var problems []string
	for _, set := range []struct {
		name string
		idx  []docstore.Index
	}{
		{models.HomesCollection, Homes()},
		{models.RoomsCollection, Rooms()},
		{models.ItemsCollection, Items()},
		{models.InvitationsCollection, Invitations()},
		{models.UsersCollection, Users()},
	} {
		if err := s.EnsureIndexes(ctx, set.idx); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Homes are looked up by owner, member and pending invite email.
func Homes() []docstore.Index {
	return []docstore.Index{
		{Collection: models.HomesCollection, Name: "idx_homes_owner", Fields: []string{"ownerId"}},
		{Collection: models.HomesCollection, Name: "idx_homes_members", Fields: []string{"members"}},
		{Collection: models.HomesCollection, Name: "idx_homes_pending", Fields: []string{"pendingInvites"}},
	}
}

// Rooms: ordered listing per home; one normalized name per home.
func Rooms() []docstore.Index {
	return []docstore.Index{
		{Collection: models.RoomsCollection, Name: "idx_rooms_home_order", Fields: []string{"homeId", "order"}},
		{Collection: models.RoomsCollection, Name: "uniq_rooms_home_name", Fields: []string{"homeId", "nameKey"}, Unique: true},
	}
}

// Items: listing per home and per room; one normalized name per room.
func Items() []docstore.Index {
	return []docstore.Index{
		{Collection: models.ItemsCollection, Name: "idx_items_home", Fields: []string{"homeId"}},
		{Collection: models.ItemsCollection, Name: "idx_items_room", Fields: []string{"roomId"}},
		{Collection: models.ItemsCollection, Name: "uniq_items_room_name", Fields: []string{"roomId", "nameKey"}, Unique: true},
	}
}

// Invitations: listing per home and per invitee; at most one pending
// invitation per (home, email).
func Invitations() []docstore.Index {
	return []docstore.Index{
		{Collection: models.InvitationsCollection, Name: "idx_invitations_home", Fields: []string{"homeId"}},
		{Collection: models.InvitationsCollection, Name: "idx_invitations_email_status", Fields: []string{"emailLower", "status"}},
		{
			Collection: models.InvitationsCollection,
			Name:       "uniq_invitations_pending",
			Fields:     []string{"homeId", "emailLower"},
			Unique:     true,
			Partial:    bson.M{"status": string(models.InvitationPending)},
		},
	}
}

// Users are resolved by email when invitations are reconciled.
func Users() []docstore.Index {
	return []docstore.Index{
		{Collection: models.UsersCollection, Name: "idx_users_email", Fields: []string{"emailLower"}},
	}
}
