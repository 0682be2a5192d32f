// internal/app/features/publicshare/routes.go
package publicshare

import "github.com/go-chi/chi/v5"

// Routes returns the unauthenticated share router, mounted at /public/shares.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{shareID}", h.ServeShare)
	return r
}
