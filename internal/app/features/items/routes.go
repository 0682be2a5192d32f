// internal/app/features/items/routes.go
package items

import "github.com/go-chi/chi/v5"

// MountRoutes registers the item endpoints on the /api router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/homes/{homeID}/items", h.ServeList)
	r.Post("/rooms/{roomID}/items", h.ServeCreate)
	r.Patch("/items/{itemID}", h.ServeUpdate)
	r.Delete("/items/{itemID}", h.ServeDelete)
}
