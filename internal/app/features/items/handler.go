// internal/app/features/items/handler.go
package items

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	itemstore "github.com/dalemusser/homeready/internal/app/store/items"
	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/formutil"
	"github.com/dalemusser/homeready/internal/app/system/limits"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves checklist items and the filtered checklist view.
type Handler struct {
	Homes *homestore.Store
	Rooms *roomstore.Store
	Items *itemstore.Store
	Log   *zap.Logger
}

func NewHandler(s docstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Homes: homestore.New(s),
		Rooms: roomstore.New(s),
		Items: itemstore.New(s),
		Log:   logger,
	}
}

// ServeList handles GET /api/homes/{homeID}/items.
//
// Query parameters: status (all|pending|done), necessity (all|high|medium|low),
// sort=status to put pending items first, room=<roomID> to narrow to a room.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	status, err := itemstore.ParseStatusFilter(query.Get(r, "status"))
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}
	necessity, err := itemstore.ParseNecessityFilter(query.Get(r, "necessity"))
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}
	sortByStatus := query.Get(r, "sort") == "status"
	roomID := query.Get(r, "room")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list items")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "list items", err)
		return
	}

	var all []models.Item
	if roomID != "" {
		room, err := h.Rooms.Get(ctx, roomID)
		if err == nil && room.HomeID != home.ID {
			err = roomstore.ErrNotFound
		}
		if err != nil {
			uierrors.Respond(w, r, h.Log, "list items", err)
			return
		}
		all, err = h.Items.ListByRoom(ctx, room.ID)
		if err != nil {
			uierrors.Respond(w, r, h.Log, "list items", err)
			return
		}
	} else {
		all, err = h.Items.ListByHome(ctx, home.ID)
		if err != nil {
			uierrors.Respond(w, r, h.Log, "list items", err)
			return
		}
	}

	uierrors.JSON(w, http.StatusOK, itemstore.View(all, status, necessity, sortByStatus))
}

type createRequest struct {
	Name           string `json:"name"`
	NecessityLevel string `json:"necessityLevel"`
}

// ServeCreate handles POST /api/rooms/{roomID}/items. A blank necessity
// means medium.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req createRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "create item", err)
		return
	}
	n := models.NecessityMedium
	if req.NecessityLevel != "" {
		parsed, ok := models.ParseNecessity(req.NecessityLevel)
		if !ok {
			uierrors.Respond(w, r, h.Log, "create item", itemstore.ErrInvalidNecessity)
			return
		}
		n = parsed
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create item")
	defer cancel()

	room, err := h.Rooms.Get(ctx, chi.URLParam(r, "roomID"))
	if err != nil {
		uierrors.Respond(w, r, h.Log, "create item", err)
		return
	}
	if _, err := authz.MemberHome(ctx, h.Homes, room.HomeID, uid); err != nil {
		uierrors.Respond(w, r, h.Log, "create item", err)
		return
	}
	item, err := h.Items.Create(ctx, room.HomeID, room.ID, req.Name, n)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "create item", err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, item)
}

type patchRequest struct {
	Name           *string `json:"name,omitempty"`
	NecessityLevel *string `json:"necessityLevel,omitempty"`
	Done           *bool   `json:"done,omitempty"`
}

// memberItem loads an item and checks the principal belongs to its home.
func (h *Handler) memberItem(ctx context.Context, itemID, uid string) (models.Item, error) {
	item, err := h.Items.Get(ctx, itemID)
	if err != nil {
		return models.Item{}, err
	}
	if _, err := authz.MemberHome(ctx, h.Homes, item.HomeID, uid); err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// ServeUpdate handles PATCH /api/items/{itemID}. Any subset of name,
// necessityLevel and done may be sent.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req patchRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "update item", err)
		return
	}
	patch := itemstore.Patch{Name: req.Name, Done: req.Done}
	if req.NecessityLevel != nil {
		n, ok := models.ParseNecessity(*req.NecessityLevel)
		if !ok {
			uierrors.Respond(w, r, h.Log, "update item", itemstore.ErrInvalidNecessity)
			return
		}
		patch.NecessityLevel = &n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update item")
	defer cancel()

	item, err := h.memberItem(ctx, chi.URLParam(r, "itemID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "update item", err)
		return
	}
	if err := h.Items.Update(ctx, item.ID, patch); err != nil {
		uierrors.Respond(w, r, h.Log, "update item", err)
		return
	}
	item, err = h.Items.Get(ctx, item.ID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "update item", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, item)
}

// ServeDelete handles DELETE /api/items/{itemID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete item")
	defer cancel()

	item, err := h.memberItem(ctx, chi.URLParam(r, "itemID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "delete item", err)
		return
	}
	if err := h.Items.Delete(ctx, item.ID); err != nil {
		uierrors.Respond(w, r, h.Log, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
