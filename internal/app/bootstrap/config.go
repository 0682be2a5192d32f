// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	invitationstore "github.com/dalemusser/homeready/internal/app/store/invitations"
	"github.com/dalemusser/homeready/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"

	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
)

// appConfigKeys defines the configuration keys for homeready.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: HOMEREADY_MONGO_URI, HOMEREADY_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Document store backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "homeready", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "mongo_strict_batches", Default: false, Desc: "Fail batch writes instead of running them without a transaction"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "homeready-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime (e.g., 24h, 720h)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL, used for the OAuth callback"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "invite_reconcile", Default: string(invitationstore.StrategyLedger), Desc: "Invitation reconciliation on sign-in: 'ledger' or 'push'"},
	{Name: "seed_new_homes", Default: true, Desc: "Seed default rooms and items into new homes"},

	// Abuse limits (0 disables)
	{Name: "signin_rate_limit", Default: 20, Desc: "Sign-in requests per client IP per minute"},
	{Name: "invite_rate_limit", Default: 30, Desc: "Invitations a user may send per hour"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs or CIDRs whose X-Forwarded-For is honoured (blank trusts none)"},

	// Store call deadlines
	{Name: "timeout_ping", Default: "", Desc: "Health check ping timeout (blank keeps the default)"},
	{Name: "timeout_short", Default: "", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "", Desc: "List query timeout"},
	{Name: "timeout_long", Default: "", Desc: "Multi-document batch timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// HOMEREADY_* environment variables and flags, merged with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HOMEREADY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:       strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:           appValues.String("mongo_uri"),
		MongoDatabase:      appValues.String("mongo_database"),
		MongoMaxPoolSize:   uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize:   uint64(appValues.Int("mongo_min_pool_size")),
		MongoStrictBatches: appValues.Bool("mongo_strict_batches"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		InviteReconcile: appValues.String("invite_reconcile"),
		SeedNewHomes:    appValues.Bool("seed_new_homes"),

		SignInRateLimit: appValues.Int("signin_rate_limit"),
		InviteRateLimit: appValues.Int("invite_rate_limit"),
		TrustedProxies:  appValues.String("trusted_proxies"),

		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is only checked when the mongo backend is selected.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required with the mongo backend")
		}
	case BackendMemory:
		logger.Warn("using the in-memory document store; data is lost on restart")
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}

	if _, err := invitationstore.ParseStrategy(appCfg.InviteReconcile); err != nil {
		return fmt.Errorf("invite_reconcile: %w", err)
	}
	if _, err := ratelimit.ParseProxies(appCfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}
	if appCfg.SessionKey == "" {
		return fmt.Errorf("session_key is required")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return fmt.Errorf("session_key must be changed in production")
	}
	return nil
}
