// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	authgooglefeature "github.com/dalemusser/homeready/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/homeready/internal/app/features/errors"
	healthfeature "github.com/dalemusser/homeready/internal/app/features/health"
	homesfeature "github.com/dalemusser/homeready/internal/app/features/homes"
	invitationsfeature "github.com/dalemusser/homeready/internal/app/features/invitations"
	itemsfeature "github.com/dalemusser/homeready/internal/app/features/items"
	logoutfeature "github.com/dalemusser/homeready/internal/app/features/logout"
	publicsharefeature "github.com/dalemusser/homeready/internal/app/features/publicshare"
	roomsfeature "github.com/dalemusser/homeready/internal/app/features/rooms"
	sharesfeature "github.com/dalemusser/homeready/internal/app/features/shares"
	userinfofeature "github.com/dalemusser/homeready/internal/app/features/userinfo"
	invitationstore "github.com/dalemusser/homeready/internal/app/store/invitations"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// Layout:
//   - /health, /metrics: operational endpoints
//   - /auth/google, /logout: sign-in and sign-out
//   - /public/shares/{shareID}: share snapshots, no session required
//   - /api/userinfo: who is signed in, no session required
//   - /api/...: everything else, signed-in principals only
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	strategy, err := invitationstore.ParseStrategy(appCfg.InviteReconcile)
	if err != nil {
		return nil, err
	}
	proxies, err := ratelimit.ParseProxies(appCfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	clientKey := ratelimit.ClientIPBehind(proxies)

	r := chi.NewRouter()
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	var pinger healthfeature.Pinger = healthfeature.MemoryPinger
	if deps.MongoClient != nil {
		pinger = healthfeature.MongoPinger(deps.MongoClient)
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(pinger, appCfg.StoreBackend, logger)))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// Authentication
	googleHandler, err := authgooglefeature.NewHandler(deps.Store, strategy, sessionMgr, appCfg.SessionKey,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, secure, logger)
	if err != nil {
		logger.Error("google auth init failed", zap.Error(err))
		return nil, err
	}
	if !googleHandler.IsConfigured() {
		logger.Warn("Google OAuth is not configured; sign-in is unavailable")
	}
	r.Group(func(g chi.Router) {
		if appCfg.SignInRateLimit > 0 {
			g.Use(ratelimit.Middleware(deps.Limiters.New(appCfg.SignInRateLimit, time.Minute), clientKey))
		}
		g.Mount(auth.SignInPath, authgooglefeature.Routes(googleHandler))
	})
	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, logger), sessionMgr))

	// Public share snapshots
	r.Mount("/public/shares", publicsharefeature.Routes(publicsharefeature.NewHandler(deps.Store, logger)))

	homesHandler := homesfeature.NewHandler(deps.Store, sessionMgr, appCfg.SeedNewHomes, logger)
	roomsHandler := roomsfeature.NewHandler(deps.Store, logger)
	itemsHandler := itemsfeature.NewHandler(deps.Store, logger)
	invitationsHandler := invitationsfeature.NewHandler(deps.Store, strategy, logger)
	if appCfg.InviteRateLimit > 0 {
		invitationsHandler.Limiter = deps.Limiters.New(appCfg.InviteRateLimit, time.Hour)
	}
	sharesHandler := sharesfeature.NewHandler(deps.Store, logger)
	userinfoHandler := userinfofeature.NewHandler(deps.Store, logger)

	r.Route("/api", func(api chi.Router) {
		userinfofeature.MountRoutes(api, userinfoHandler)

		api.Group(func(pr chi.Router) {
			pr.Use(sessionMgr.RequireSignedIn)
			homesfeature.MountRoutes(pr, homesHandler)
			roomsfeature.MountRoutes(pr, roomsHandler)
			itemsfeature.MountRoutes(pr, itemsHandler)
			invitationsfeature.MountRoutes(pr, invitationsHandler)
			sharesfeature.MountRoutes(pr, sharesHandler)
		})
	})

	return r, nil
}
