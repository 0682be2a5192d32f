// internal/app/features/publicshare/handler.go
package publicshare

import (
	"net/http"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	sharestore "github.com/dalemusser/homeready/internal/app/store/shares"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves share snapshots to anyone holding the link.
type Handler struct {
	Shares *sharestore.Store
	Log    *zap.Logger
}

func NewHandler(s docstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Shares: sharestore.New(s), Log: logger}
}

// ServeShare handles GET /public/shares/{shareID}.
func (h *Handler) ServeShare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "public share")
	defer cancel()

	snap, err := h.Shares.Load(ctx, chi.URLParam(r, "shareID"))
	if err != nil {
		uierrors.Respond(w, r, h.Log, "public share", err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	uierrors.JSON(w, http.StatusOK, snap)
}
