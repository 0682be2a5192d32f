// internal/app/features/shares/handler.go
package shares

import (
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	itemstore "github.com/dalemusser/homeready/internal/app/store/items"
	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	sharestore "github.com/dalemusser/homeready/internal/app/store/shares"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/formutil"
	"github.com/dalemusser/homeready/internal/app/system/limits"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PublicPrefix is where generated shares can be read without signing in.
const PublicPrefix = "/public/shares/"

type Handler struct {
	Homes  *homestore.Store
	Rooms  *roomstore.Store
	Items  *itemstore.Store
	Shares *sharestore.Store
	Log    *zap.Logger
}

func NewHandler(s docstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Homes:  homestore.New(s),
		Rooms:  roomstore.New(s),
		Items:  itemstore.New(s),
		Shares: sharestore.New(s),
		Log:    logger,
	}
}

type generateRequest struct {
	RoomIDs []string `json:"roomIds"`
	ItemIDs []string `json:"itemIds"`
}

type generateResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ServeGenerate handles POST /api/homes/{homeID}/shares. Rooms are copied in
// the order the caller listed them.
func (h *Handler) ServeGenerate(w http.ResponseWriter, r *http.Request) {
	uid, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	var req generateRequest
	if err := formutil.Decode(w, r, limits.MaxShareSelection, &req); err != nil {
		uierrors.Respond(w, r, h.Log, "generate share", err)
		return
	}
	if len(req.RoomIDs) == 0 || len(req.ItemIDs) == 0 {
		uierrors.Respond(w, r, h.Log, "generate share", sharestore.ErrEmptySelection)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "generate share")
	defer cancel()

	home, err := authz.MemberHome(ctx, h.Homes, chi.URLParam(r, "homeID"), uid)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "generate share", err)
		return
	}

	allRooms, err := h.Rooms.List(ctx, home.ID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "generate share", err)
		return
	}
	roomByID := make(map[string]models.Room, len(allRooms))
	for _, rm := range allRooms {
		roomByID[rm.ID] = rm
	}
	rooms := make([]models.Room, 0, len(req.RoomIDs))
	for _, id := range req.RoomIDs {
		rm, ok := roomByID[id]
		if !ok {
			uierrors.Respond(w, r, h.Log, "generate share", fmt.Errorf("%w: room %s", sharestore.ErrForeignSelection, id))
			return
		}
		rooms = append(rooms, rm)
	}

	allItems, err := h.Items.ListByHome(ctx, home.ID)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "generate share", err)
		return
	}
	itemByID := make(map[string]models.Item, len(allItems))
	for _, it := range allItems {
		itemByID[it.ID] = it
	}
	items := make([]models.Item, 0, len(req.ItemIDs))
	seen := make(map[string]struct{}, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		it, ok := itemByID[id]
		if !ok {
			uierrors.Respond(w, r, h.Log, "generate share", fmt.Errorf("%w: item %s", sharestore.ErrForeignSelection, id))
			return
		}
		items = append(items, it)
	}

	id, err := h.Shares.Generate(ctx, home.ID, uid, rooms, items)
	if err != nil {
		uierrors.Respond(w, r, h.Log, "generate share", err)
		return
	}
	h.Log.Info("share generated",
		zap.String("share_id", id),
		zap.String("home_id", home.ID),
		zap.Int("rooms", len(rooms)),
		zap.Int("items", len(items)))
	uierrors.JSON(w, http.StatusCreated, generateResponse{ID: id, URL: PublicPrefix + id})
}
