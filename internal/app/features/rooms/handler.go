// internal/app/features/rooms/handler.go
package rooms

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/formutil"
	"github.com/dalemusser/homeready/internal/app/system/limits"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the ordered rooms of a home.
type Handler struct {
	Homes *homestore.Store
	Rooms *roomstore.Store
	Log   *zap.Logger
}

func NewHandler(s docstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Homes: homestore.New(s),
		Rooms: roomstore.New(s),
		Log:   logger,
	}
}

// memberRoom loads a room and checks the principal belongs to its home.
func (h *Handler) memberRoom(ctx context.Context, roomID, uid string) (models.Room, error) {
	room, err := h.Rooms.Get(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if _, err := authz.MemberHome(ctx, h.Homes, room.HomeID, uid); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// ServeList handles GET /api/homes/{homeID}/rooms.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list rooms")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "list rooms", err)
		return
	}
	rooms, err := h.Rooms.List(ctx, home.ID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "list rooms", err)
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	uierrors.JSON(w, http.StatusOK, rooms)
}

type createRequest struct {
	Name  string `json:"name"`
	Order *int   `json:"order,omitempty"`
}

// ServeCreate handles POST /api/homes/{homeID}/rooms. Without an explicit
// order the room is appended after the existing ones.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req createRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "create room", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create room")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "create room", err)
		return
	}
	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		existing, err := h.Rooms.List(ctx, home.ID)
		if err != nil {
			uierrors.Respond(w, r, h.Log, "create room", err)
			return
		}
		order = len(existing)
	}

	room, err := h.Rooms.Create(ctx, home.ID, req.Name, order)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "create room", err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, room)
}

type renameRequest struct {
	Name string `json:"name"`
}

// ServeRename handles PATCH /api/rooms/{roomID}.
func (h *Handler) ServeRename(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req renameRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "rename room", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rename room")
	defer cancel()

	room, err := h.memberRoom(ctx, chi.URLParam(r, "roomID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "rename room", err)
		return
	}
	if err := h.Rooms.Rename(ctx, room.ID, req.Name); err != nil {
		uierrors.Respond(w, r, h.Log, "rename room", err)
		return
	}
	room, err = h.Rooms.Get(ctx, room.ID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "rename room", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, room)
}

type moveRequest struct {
	Direction string `json:"direction"`
}

// ServeMove handles POST /api/rooms/{roomID}/move and answers with the
// home's rooms in their new order.
func (h *Handler) ServeMove(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req moveRequest
	if err := formutil.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "move room", err)
		return
	}
	dir, err := roomstore.ParseDirection(req.Direction)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "move room", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "move room")
	defer cancel()

	room, err := h.memberRoom(ctx, chi.URLParam(r, "roomID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "move room", err)
		return
	}
	if err := h.Rooms.Move(ctx, room.ID, dir); err != nil {
		uierrors.Respond(w, r, h.Log, "move room", err)
		return
	}
	rooms, err := h.Rooms.List(ctx, room.HomeID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "move room", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, rooms)
}

// ServeDelete handles DELETE /api/rooms/{roomID}. The room's items are
// deleted with it.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete room")
	defer cancel()

	room, err := h.memberRoom(ctx, chi.URLParam(r, "roomID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "delete room", err)
		return
	}
	if err := h.Rooms.Delete(ctx, room.ID); err != nil {
		uierrors.Respond(w, r, h.Log, "delete room", err)
		return
	}
	h.Log.Info("room deleted",
		zap.String("room_id", room.ID),
		zap.String("home_id", room.HomeID),
		zap.String("by", uid))
	w.WriteHeader(http.StatusNoContent)
}
