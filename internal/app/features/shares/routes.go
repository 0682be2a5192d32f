// internal/app/features/shares/routes.go
package shares

import "github.com/go-chi/chi/v5"

// MountRoutes registers share generation on the /api router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/homes/{homeID}/shares", h.ServeGenerate)
}
