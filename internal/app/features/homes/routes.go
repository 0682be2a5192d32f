// internal/app/features/homes/routes.go
package homes

import "github.com/go-chi/chi/v5"

// MountRoutes registers the home endpoints on an /api router that already
// requires a signed-in user.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/homes", h.ServeList)
	r.Post("/homes", h.ServeCreate)
	r.Get("/homes/{homeID}", h.ServeGet)
	r.Put("/homes/{homeID}/palette", h.ServePalette)
	r.Get("/homes/{homeID}/progress", h.ServeProgress)
	r.Get("/palettes", h.ServePalettes)
	r.Get("/session/home", h.ServeSessionHome)
	r.Put("/session/home", h.ServeSelectHome)
}
