// internal/app/features/invitations/routes.go
package invitations

import "github.com/go-chi/chi/v5"

// MountRoutes registers the invitation endpoints on the /api router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/homes/{homeID}/invitations", h.ServeListForHome)
	r.Post("/homes/{homeID}/invitations", h.ServeInvite)
	r.Get("/invitations", h.ServeMine)
	r.Post("/invitations/{id}/accept", h.ServeAccept)
	r.Post("/invitations/{id}/decline", h.ServeDecline)
}
