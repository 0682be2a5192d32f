// internal/app/features/homes/handler.go
package homes

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	metricsstore "github.com/dalemusser/homeready/internal/app/store/metrics"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/formutil"
	"github.com/dalemusser/homeready/internal/app/system/limits"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves homes, palettes, the session's active home and progress.
type Handler struct {
	Store      docstore.Store
	Homes      *homestore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger

	// SeedDefault is used when a create request does not say whether to seed.
	SeedDefault bool
}

func NewHandler(s docstore.Store, sessionMgr *auth.SessionManager, seedDefault bool, logger *zap.Logger) *Handler {
	return &Handler{
		Store:       s,
		Homes:       homestore.New(s),
		SessionMgr:  sessionMgr,
		Log:         logger,
		SeedDefault: seedDefault,
	}
}

type listResponse struct {
	Homes        []models.Home `json:"homes"`
	ActiveHomeID string        `json:"activeHomeId,omitempty"`
}

// ServeList handles GET /api/homes.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list homes")
	defer cancel()

	homes, err := h.Homes.ListForPrincipal(ctx, uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "list homes", err)
		return
	}
	active, _ := activeHome(h.SessionMgr.ActiveHome(r), homes)
	uierrors.JSON(w, http.StatusOK, listResponse{Homes: homes, ActiveHomeID: active.ID})
}

type createRequest struct {
	Name    string          `json:"name"`
	Palette *models.Palette `json:"palette,omitempty"`
	Seed    *bool           `json:"seed,omitempty"`
}

// ServeCreate handles POST /api/homes. The new home becomes the active home
// when the session has none.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req createRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "create home", err)
		return
	}
	seed := h.SeedDefault
	if req.Seed != nil {
		seed = *req.Seed
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create home")
	defer cancel()

	home, err := h.Homes.Create(ctx, homestore.CreateInput{OwnerID: uid, Name: req.Name, Palette: req.Palette, Seed: seed})
	if err != nil {
		uierrors.Respond(w, r, h.Log, "create home", err)
		return
	}
	h.Log.Info("home created",
		zap.String("home_id", home.ID),
		zap.String("owner_id", uid),
		zap.Bool("seeded", seed))

	if h.SessionMgr.ActiveHome(r) == "" {
		if err := h.SessionMgr.SetActiveHome(w, r, home.ID); err != nil {
			h.Log.Warn("could not select new home", zap.Error(err))
		}
	}
	uierrors.JSON(w, http.StatusCreated, home)
}

// ServeGet handles GET /api/homes/{homeID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get home")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "get home", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, home)
}

// ServePalette handles PUT /api/homes/{homeID}/palette.
func (h *Handler) ServePalette(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var p models.Palette
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &p); err != nil {
		uierrors.Respond(w, r, h.Log, "update palette", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update palette")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "update palette", err)
		return
	}
	if err := h.Homes.UpdatePalette(ctx, home.ID, p); err != nil {
		uierrors.Respond(w, r, h.Log, "update palette", err)
		return
	}
	home.Palette = p
	uierrors.JSON(w, http.StatusOK, home)
}

type palettesResponse struct {
	Default models.Palette        `json:"default"`
	Presets []models.NamedPalette `json:"presets"`
}

// ServePalettes handles GET /api/palettes.
func (h *Handler) ServePalettes(w http.ResponseWriter, r *http.Request) {
	uierrors.JSON(w, http.StatusOK, palettesResponse{Default: models.DefaultPalette, Presets: models.PresetPalettes()})
}

type sessionHomeResponse struct {
	Home *models.Home `json:"home"`
}

// ServeSessionHome handles GET /api/session/home. A stale selection (the
// principal lost access) falls back to the first listed home.
func (h *Handler) ServeSessionHome(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "session home")
	defer cancel()

	homes, err := h.Homes.ListForPrincipal(ctx, uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "session home", err)
		return
	}
	home, found := activeHome(h.SessionMgr.ActiveHome(r), homes)
	if !found {
		uierrors.JSON(w, http.StatusOK, sessionHomeResponse{})
		return
	}
	uierrors.JSON(w, http.StatusOK, sessionHomeResponse{Home: &home})
}

type selectRequest struct {
	HomeID string `json:"homeId"`
}

// ServeSelectHome handles PUT /api/session/home.
func (h *Handler) ServeSelectHome(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req selectRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "select home", err)
		return
	}
	if req.HomeID == "" {
		uierrors.BadRequest(w, "homeId is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "select home")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, req.HomeID, uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "select home", err)
		return
	}
	if err := h.SessionMgr.SetActiveHome(w, r, home.ID); err != nil {
		uierrors.Respond(w, r, h.Log, "select home", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, sessionHomeResponse{Home: &home})
}

// ServeProgress handles GET /api/homes/{homeID}/progress.
func (h *Handler) ServeProgress(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "home progress")
	defer cancel()

	progress, err := h.progress(ctx, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "home progress", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, progress)
}

func (h *Handler) progress(ctx context.Context, homeID, uid string) (metricsstore.Progress, error) {
	if _, err := authz.MemberHome(ctx, h.Homes, homeID, uid); err != nil {
		return metricsstore.Progress{}, err
	}
	return metricsstore.FetchHomeProgress(ctx, h.Store, homeID)
}

// activeHome picks the selected home from homes, or the first one when the
// selection is empty or no longer accessible.
func activeHome(selected string, homes []models.Home) (models.Home, bool) {
	if len(homes) == 0 {
		return models.Home{}, false
	}
	for _, home := range homes {
		if home.ID == selected {
			return home, true
		}
	}
	return homes[0], true
}

