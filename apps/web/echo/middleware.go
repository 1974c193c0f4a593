package echoweb

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/guard"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/session"
	"github.com/raavitutorials/webapp/services/supabase"
)

const sessionContextKey = "appSession"

// SessionStore keys each visiting browser to its own session.Context through
// an opaque cookie. Contexts expire with the cookie and are reaped lazily.
type SessionStore struct {
	conf     *core.Config
	client   *supabase.Client
	profiles *profile.Service
	logger   core.Logger

	mu      sync.Mutex
	entries map[string]*storeEntry
}

type storeEntry struct {
	sc      *session.Context
	expires time.Time
}

func NewSessionStore(conf *core.Config, client *supabase.Client, profiles *profile.Service, logger core.Logger) *SessionStore {
	return &SessionStore{
		conf:     conf,
		client:   client,
		profiles: profiles,
		logger:   logger,
		entries:  make(map[string]*storeEntry),
	}
}

// Middleware attaches the visitor's session.Context to the request, creating
// the cookie and the context on first contact.
func (st *SessionStore) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sc := st.sessionFor(ctx)
			ctx.Set(sessionContextKey, sc)
			return next(ctx)
		}
	}
}

// ContextSession returns the session.Context the middleware attached.
func ContextSession(ctx echo.Context) *session.Context {
	sc, _ := ctx.Get(sessionContextKey).(*session.Context)
	return sc
}

func (st *SessionStore) sessionFor(ctx echo.Context) *session.Context {
	var sid string
	if cookie, err := ctx.Cookie(st.conf.Session.CookieName); err == nil {
		sid = cookie.Value
	}

	st.mu.Lock()
	st.reapLocked()
	if sid != "" {
		if entry, ok := st.entries[sid]; ok {
			entry.expires = time.Now().Add(st.conf.Session.TTL)
			st.mu.Unlock()
			st.checkToken(entry.sc, ctx)
			return entry.sc
		}
	}

	sid = uuid.NewString()
	sc := session.New(st.client.WithIsolatedAuth(), st.profiles, st.logger)
	sc.Init(ctx.Request().Context(), "")
	st.entries[sid] = &storeEntry{sc: sc, expires: time.Now().Add(st.conf.Session.TTL)}
	st.mu.Unlock()

	ctx.SetCookie(&http.Cookie{
		Name:     st.conf.Session.CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(st.conf.Session.TTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sc
}

// checkToken drops a held session whose access token no longer verifies.
// Skipped when no JWT secret is configured (the token is opaque then).
func (st *SessionStore) checkToken(sc *session.Context, ctx echo.Context) {
	secret := st.conf.Supabase.JWTSecret
	if secret == "" {
		return
	}
	token := sc.Token()
	if token == "" {
		return
	}
	if _, err := VerifyAccessToken(token, secret); err != nil {
		st.logger.Info("dropping session with stale token:", err)
		_ = sc.SignOut(ctx.Request().Context())
	}
}

// reapLocked closes expired contexts. Caller holds st.mu.
func (st *SessionStore) reapLocked() {
	now := time.Now()
	for sid, entry := range st.entries {
		if now.After(entry.expires) {
			entry.sc.Close()
			delete(st.entries, sid)
		}
	}
}

// Close shuts every held session context down.
func (st *SessionStore) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for sid, entry := range st.entries {
		entry.sc.Close()
		delete(st.entries, sid)
	}
}

// roleMiddleware gates a route to the given roles, sending anyone else where
// the guard says.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sc := ContextSession(ctx)
			if sc == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no session")
			}

			decision := guard.Decide(sc.Snapshot(), roles, ctx.Request().URL.Path)
			switch decision.Action {
			case guard.Render:
				return next(ctx)
			case guard.Wait:
				return ctx.JSON(http.StatusAccepted, echo.Map{"status": "loading"})
			case guard.RedirectLogin:
				target := loginPath(roles) + "?from=" + url.QueryEscape(decision.From)
				return ctx.Redirect(http.StatusFound, target)
			default:
				return ctx.Redirect(http.StatusFound, "/unauthorized")
			}
		}
	}
}

// loginPath picks the login page matching the first gated role.
func loginPath(roles []string) string {
	if len(roles) == 0 {
		return "/student-login"
	}
	switch roles[0] {
	case profile.RoleAdmin:
		return "/admin-login"
	case profile.RoleTeacher:
		return "/teacher-login"
	default:
		return "/student-login"
	}
}
