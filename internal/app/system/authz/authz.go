// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"net/http"

	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/domain/models"
)

var (
	// ErrNotMember is returned when the principal neither owns nor belongs
	// to the home.
	ErrNotMember = errors.New("not a member of this home")
	// ErrNotOwner is returned for owner-only actions such as inviting.
	ErrNotOwner = errors.New("only the home owner can do this")
)

// UserCtx returns the signed-in user's id and name and a found flag.
// A user with an empty id is treated as not signed in.
func UserCtx(r *http.Request) (uid, name string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		return "", "", false
	}
	return user.ID, user.Name, true
}

// HomeGetter loads a home by id.
type HomeGetter interface {
	Get(ctx context.Context, id string) (models.Home, error)
}

var _ HomeGetter = (*homestore.Store)(nil)

// MemberHome loads homeID and checks that uid owns it or is a member.
func MemberHome(ctx context.Context, homes HomeGetter, homeID, uid string) (models.Home, error) {
	home, err := homes.Get(ctx, homeID)
	if err != nil {
		return models.Home{}, err
	}
	if !home.HasMember(uid) {
		return models.Home{}, ErrNotMember
	}
	return home, nil
}

// OwnerHome loads homeID and checks that uid owns it.
func OwnerHome(ctx context.Context, homes HomeGetter, homeID, uid string) (models.Home, error) {
	home, err := MemberHome(ctx, homes, homeID, uid)
	if err != nil {
		return models.Home{}, err
	}
	if home.OwnerID != uid {
		return models.Home{}, ErrNotOwner
	}
	return home, nil
}
