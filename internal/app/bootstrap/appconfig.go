// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (HOMEREADY_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// carries the framework-level settings (ports, TLS, logging, CORS); this
// struct carries what is specific to homeready.
type AppConfig struct {
	// Document store backend: "mongo" or "memory".
	StoreBackend string

	// MongoDB connection configuration (mongo backend only)
	MongoURI           string // e.g., mongodb://localhost:27017
	MongoDatabase      string
	MongoMaxPoolSize   uint64
	MongoMinPoolSize   uint64
	MongoStrictBatches bool // refuse to commit batches without a transaction

	// Session management configuration
	SessionKey    string // Secret for signing and encrypting cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: homeready-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Base URL used to build the OAuth callback, e.g. "https://homeready.example"
	BaseURL string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Invitation reconciliation on sign-in: "ledger" or "push".
	InviteReconcile string

	// Seed default rooms and items into new homes unless the request says otherwise.
	SeedNewHomes bool

	// Requests per window; 0 disables the limit.
	SignInRateLimit int // per client IP per minute
	InviteRateLimit int // per user per hour

	// Proxies allowed to report the client address in X-Forwarded-For,
	// as a comma-separated list of IPs or CIDRs. Blank keys sign-in
	// limits on the peer address.
	TrustedProxies string

	// Store call deadlines; zero keeps the default.
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
