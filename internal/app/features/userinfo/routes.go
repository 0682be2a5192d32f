// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /userinfo on r. It must be reachable without a
// session.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/userinfo", h.ServeUserInfo)
}
