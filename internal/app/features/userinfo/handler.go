// internal/app/features/userinfo/handler.go
package userinfo

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	profilestore "github.com/dalemusser/homeready/internal/app/store/profiles"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the identity of the current session.
type Handler struct {
	Profiles *profilestore.Store
	Log      *zap.Logger
}

func NewHandler(s docstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Profiles: profilestore.New(s), Log: logger}
}

type response struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	UID             string          `json:"uid"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Profile         *models.Profile `json:"profile,omitempty"`
}

// ServeUserInfo returns the signed-in principal, or isAuthenticated=false.
// It answers 200 either way so clients can check the session.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.JSON(w, http.StatusOK, response{})
		return
	}

	resp := response{
		IsAuthenticated: true,
		UID:             user.ID,
		Name:            user.Name,
		Email:           user.Email,
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "userinfo")
	defer cancel()

	p, err := h.Profiles.Get(ctx, user.ID)
	switch {
	case err == nil:
		resp.Profile = &p
	case errors.Is(err, profilestore.ErrNotFound):
	default:
		uierrors.Respond(w, r, h.Log, "userinfo", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, resp)
}
