// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey    = "is_authenticated"
	userIDKey    = "user_id"
	activeOrgKey = "active_org_id"
)

// ErrNoSessionKey is returned by NewSessionManager when the key is empty.
var ErrNoSessionKey = errors.New("session key is empty; provide 32+ random chars")

/*─────────────────────────────────────────────────────────────────────────────*
| Session values                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the identity half of a session, loaded fresh on every request.
type SessionUser struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Image string
}

// Session is the resolved request session: who is signed in and which
// organization they are working in. ActiveOrganizationID is nil until the
// user picks or creates an organization.
type Session struct {
	User                 *SessionUser
	ActiveOrganizationID *primitive.ObjectID
}

// UserFetcher loads the current user for a session cookie's user id.
// It returns nil when the user no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const sessionCtxKey ctxKey = "zelusSession"

// FromContext returns the session stored by LoadSession, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey).(*Session)
	return s
}

// CurrentSession returns the request's session and whether one is present.
func CurrentSession(r *http.Request) (*Session, bool) {
	s := FromContext(r.Context())
	return s, s != nil && s.User != nil
}

// CurrentUser returns the signed-in user and whether one is present.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	s, ok := CurrentSession(r)
	if !ok {
		return nil, false
	}
	return s.User, true
}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// WithTestSession injects a session into the request. Tests use it in place
// of LoadSession.
func WithTestSession(r *http.Request, s *Session) *http.Request {
	return r.WithContext(WithSession(r.Context(), s))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and resolves request sessions.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds a cookie-backed session manager.
//
// With secure=true cookies are Secure + SameSite=None; in local development
// over http://localhost use secure=false so browsers accept them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "zelus-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher wires the lookup used by LoadSession.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// Store exposes the underlying cookie store (cookie options for deletion).
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// GetSession returns the raw cookie session. On a decode error a fresh
// session is returned together with the error, so callers can still write.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// LoadSession resolves the session cookie into a *Session on the request
// context. Missing, invalid or stale cookies leave the context without a
// session.
func (sm *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			var scErr securecookie.Error
			if errors.As(err, &scErr) && scErr.IsDecode() {
				sm.log.Debug("ignoring undecodable session cookie", zap.Error(err))
			} else {
				sm.log.Warn("session store error", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		isAuth, _ := sess.Values[isAuthKey].(bool)
		uid, _ := sess.Values[userIDKey].(string)
		if !isAuth || uid == "" || sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}

		u := sm.fetcher.FetchUser(r.Context(), uid)
		if u == nil {
			// user was removed after the cookie was issued
			next.ServeHTTP(w, r)
			return
		}

		s := &Session{User: u}
		if hex, _ := sess.Values[activeOrgKey].(string); hex != "" {
			if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
				s.ActiveOrganizationID = &oid
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// SignIn marks the cookie session authenticated for userID. Any active
// organization from a previous user is cleared.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session cookie invalid, using fresh session", zap.Error(err))
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID.Hex()
	delete(sess.Values, activeOrgKey)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SetActiveOrganization switches the session's active organization and
// writes the new cookie to w.
func (sm *SessionManager) SetActiveOrganization(w http.ResponseWriter, r *http.Request, orgID primitive.ObjectID) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	isAuth, _ := sess.Values[isAuthKey].(bool)
	if _, ok := CurrentUser(r); !ok && !isAuth {
		return errors.New("set active organization: not signed in")
	}
	sess.Values[activeOrgKey] = orgID.Hex()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie using the store's cookie options.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during logout", zap.Error(err))
	}
	if opts := sm.store.Options; opts != nil {
		sess.Options.Domain = opts.Domain
		sess.Options.Path = opts.Path
		sess.Options.Secure = opts.Secure
		sess.Options.HttpOnly = opts.HttpOnly
		sess.Options.SameSite = opts.SameSite
	}
	sess.Options.MaxAge = -1
	sess.Values = map[any]any{}
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is a signed-in user in context.
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		RedirectToLogin(w, r)
	})
}

// RedirectToLogin sends the caller to the login page, preserving the
// current URI as the return target.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	dest := "/login?return=" + url.QueryEscape(r.URL.RequestURI())
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if WantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// WantsHTML treats HTMX requests and requests accepting text/html as
// browser navigation.
func WantsHTML(r *http.Request) bool {
	if IsHTMX(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
