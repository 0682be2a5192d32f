// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes serves the store reachability check at the mount root. HEAD is
// answered too so load balancers can check without reading a body.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	r.Head("/", h.Serve)
	return r
}
