// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	invitationstore "github.com/dalemusser/homeready/internal/app/store/invitations"
	profilestore "github.com/dalemusser/homeready/internal/app/store/profiles"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// StateCookieName carries the OAuth state and return path between the
	// redirect to Google and the callback.
	StateCookieName = "homeready_oauth_state"
	stateTTL        = 10 * time.Minute

	// DefaultUserInfoURL is Google's v2 userinfo endpoint.
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler handles Google OAuth authentication.
type Handler struct {
	Log         *zap.Logger
	SessionMgr  *auth.SessionManager
	Profiles    *profilestore.Store
	Invitations *invitationstore.Store

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://homeready.example/auth/google/callback"
	Secure       bool

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	state *securecookie.SecureCookie
}

// NewHandler creates a Google OAuth handler. The state cookie is signed and
// encrypted with keys derived from sessionKey.
func NewHandler(
	s docstore.Store,
	strategy invitationstore.Strategy,
	sessionMgr *auth.SessionManager,
	sessionKey string,
	clientID, clientSecret, baseURL string,
	secure bool,
	logger *zap.Logger,
) (*Handler, error) {
	hashKey, err := auth.DeriveKey(sessionKey, "oauth-state-hash", 32)
	if err != nil {
		return nil, err
	}
	blockKey, err := auth.DeriveKey(sessionKey, "oauth-state-block", 32)
	if err != nil {
		return nil, err
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(stateTTL.Seconds()))

	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		Profiles:     profilestore.New(s),
		Invitations:  invitationstore.New(s, strategy),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + auth.SignInPath + "/callback",
		Secure:       secure,
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
		state:        sc,
	}, nil
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

type oauthState struct {
	State  string
	Return string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.fail(w, r, "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	returnURL := query.Get(r, "return")

	encoded, err := h.state.Encode(StateCookieName, oauthState{State: state, Return: returnURL})
	if err != nil {
		h.Log.Error("failed to encode OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    encoded,
		Path:     auth.SignInPath,
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow",
		zap.String("redirect_url", url),
		zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.fail(w, r, "google_denied")
		return
	}

	saved, ok := h.readState(r)
	h.clearState(w)
	if !ok || saved.State == "" || query.Get(r, "state") != saved.State {
		h.Log.Warn("invalid or expired OAuth state")
		h.fail(w, r, "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.fail(w, r, "invalid_code")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "google sign-in")
	defer cancel()

	conf := h.oauth2Config()
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.fail(w, r, "token_exchange")
		return
	}
	info, err := h.fetchUserInfo(ctx, conf, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.fail(w, r, "user_info")
		return
	}
	if info.ID == "" || !info.EmailVerified {
		// Invitations are matched by email, so it has to be verified.
		h.Log.Warn("Google account rejected",
			zap.String("google_id", info.ID),
			zap.Bool("verified_email", info.EmailVerified))
		h.fail(w, r, "email_unverified")
		return
	}

	principal := models.Principal{
		UID:         info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
	}
	profile, err := h.Profiles.Sync(ctx, principal)
	if err != nil {
		h.Log.Error("profile sync failed", zap.String("uid", principal.UID), zap.Error(err))
		h.fail(w, r, "internal")
		return
	}

	// A failed reconciliation must not block sign-in; it is retried on the
	// next one.
	accepted, err := h.Invitations.ReconcileOnSignIn(ctx, principal)
	if err != nil {
		h.Log.Warn("invitation reconciliation failed", zap.String("uid", principal.UID), zap.Error(err))
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:       profile.UID,
		Name:     profile.DisplayName,
		Email:    profile.Email,
		PhotoURL: profile.PhotoURL,
	}); err != nil {
		h.Log.Error("save session failed", zap.String("uid", principal.UID), zap.Error(err))
		h.fail(w, r, "session")
		return
	}

	h.Log.Info("user signed in via Google OAuth",
		zap.String("uid", profile.UID),
		zap.Int("invitations_accepted", accepted),
		zap.String("strategy", string(h.Invitations.Strategy())))

	http.Redirect(w, r, urlutil.SafeReturn(saved.Return, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*googleUserInfo, error) {
	resp, err := conf.Client(ctx, token).Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

func (h *Handler) readState(r *http.Request) (oauthState, bool) {
	c, err := r.Cookie(StateCookieName)
	if err != nil {
		return oauthState{}, false
	}
	var st oauthState
	if err := h.state.Decode(StateCookieName, c.Value, &st); err != nil {
		h.Log.Debug("OAuth state cookie rejected", zap.Error(err))
		return oauthState{}, false
	}
	return st, true
}

func (h *Handler) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     auth.SignInPath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+code, http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
