// internal/app/features/invitations/handler.go
package invitations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	invitationstore "github.com/dalemusser/homeready/internal/app/store/invitations"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/formutil"
	"github.com/dalemusser/homeready/internal/app/system/limits"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/app/system/ratelimit"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/dalemusser/waffle/toolkit/validate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the invitation ledger.
type Handler struct {
	Homes       *homestore.Store
	Invitations *invitationstore.Store
	Log         *zap.Logger

	// Limiter caps invitations per inviter. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

func NewHandler(s docstore.Store, strategy invitationstore.Strategy, logger *zap.Logger) *Handler {
	return &Handler{
		Homes:       homestore.New(s),
		Invitations: invitationstore.New(s, strategy),
		Log:         logger,
	}
}

// ServeListForHome handles GET /api/homes/{homeID}/invitations.
func (h *Handler) ServeListForHome(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list home invitations")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "list home invitations", err)
		return
	}
	invs, err := h.Invitations.ListForHome(ctx, home.ID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "list home invitations", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, nonNil(invs))
}

type inviteRequest struct {
	Email string `json:"email"`
}

// ServeInvite handles POST /api/homes/{homeID}/invitations. Only the owner
// may invite. Re-inviting a pending address answers 200 with the existing
// invitation instead of 201.
func (h *Handler) ServeInvite(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req inviteRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "invite", err)
		return
	}
	email := normalize.Email(req.Email)
	if email == "" {
		uierrors.BadRequest(w, "email is required")
		return
	}
	if !validate.SimpleEmailValid(email) {
		uierrors.BadRequest(w, "email is not a valid address")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "invite")
	defer cancel()

	home, err := authz.OwnerHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "invite", err)
		return
	}
	if h.Limiter != nil && !h.Limiter.Allow(uid) {
		h.Log.Warn("invite rate limited", zap.String("uid", uid))
		ratelimit.Reject(w, h.Limiter.Interval())
		return
	}
	inv, created, err := h.Invitations.Invite(ctx, home.ID, home.Name, uid, req.Email)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "invite", err)
		return
	}
	if !created {
		uierrors.JSON(w, http.StatusOK, inv)
		return
	}
	h.Log.Info("invitation created",
		zap.String("invitation_id", inv.ID),
		zap.String("home_id", home.ID),
		zap.String("by", uid))
	uierrors.JSON(w, http.StatusCreated, inv)
}

// ServeMine handles GET /api/invitations: every invitation addressed to the
// signed-in principal's email.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "my invitations")
	defer cancel()

	invs, err := h.Invitations.ListForEmail(ctx, user.Email)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "my invitations", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, nonNil(invs))
}

// addressed loads an invitation and checks it was sent to the principal.
// The home owner may also act on it, which lets them withdraw an invitation.
func (h *Handler) addressed(ctx context.Context, id string, user *auth.SessionUser, ownerMayAct bool) (models.Invitation, error) {
	inv, err := h.Invitations.Get(ctx, id)
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.EmailLower == normalize.Email(user.Email) {
		return inv, nil
	}
	if ownerMayAct {
		if _, err := authz.OwnerHome(ctx, h.Homes, inv.HomeID, user.ID); err == nil {
			return inv, nil
		}
	}
	return models.Invitation{}, authz.ErrNotMember
}

// ServeAccept handles POST /api/invitations/{id}/accept.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept invitation")
	defer cancel()

	inv, err := h.addressed(ctx, chi.URLParam(r, "id"), user, false)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "accept invitation", err)
		return
	}
	if err := h.Invitations.Accept(ctx, inv.ID, user.ID); err != nil {
		uierrors.Respond(w, r, h.Log, "accept invitation", err)
		return
	}
	h.Log.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("home_id", inv.HomeID),
		zap.String("uid", user.ID))
	h.respondCurrent(w, r, inv.ID)
}

// ServeDecline handles POST /api/invitations/{id}/decline.
func (h *Handler) ServeDecline(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "decline invitation")
	defer cancel()

	inv, err := h.addressed(ctx, chi.URLParam(r, "id"), user, true)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "decline invitation", err)
		return
	}
	if err := h.Invitations.Decline(ctx, inv.ID); err != nil {
		uierrors.Respond(w, r, h.Log, "decline invitation", err)
		return
	}
	h.respondCurrent(w, r, inv.ID)
}

func (h *Handler) respondCurrent(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reload invitation")
	defer cancel()

	inv, err := h.Invitations.Get(ctx, id)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "reload invitation", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, inv)
}

func nonNil(invs []models.Invitation) []models.Invitation {
	if invs == nil {
		return []models.Invitation{}
	}
	return invs
}
