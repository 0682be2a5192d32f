// internal/app/features/rooms/routes.go
package rooms

import "github.com/go-chi/chi/v5"

// MountRoutes registers the room endpoints on the /api router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/homes/{homeID}/rooms", h.ServeList)
	r.Post("/homes/{homeID}/rooms", h.ServeCreate)
	r.Patch("/rooms/{roomID}", h.ServeRename)
	r.Post("/rooms/{roomID}/move", h.ServeMove)
	r.Delete("/rooms/{roomID}", h.ServeDelete)
}
