package agrosite

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/agrosite/agrosite/store"
)

const (
	sessionName     = "admin_session"
	sessionAdminKey = "admin_id"
	adminContextKey = "admin"
	loggerKey       = "logger"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler
	e.Validator = newRequestValidator()

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(loggerKey, a.Log.With().Str("request_id", id).Logger())
		},
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = a.Log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = a.Log.Warn()
			default:
				ev = a.Log.Info()
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/uploads/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; img-src 'self'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: a.Config.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/uploads/")
		},
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	a.csrf = middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:  middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup: "header:X-CSRF-Token",
		CookieName:  "_csrf",
		CookiePath:  "/",
		CookieSameSite: func() http.SameSite {
			return http.SameSiteLaxMode
		}(),
		CookieSecure: a.Config.CookieSecure,
		Skipper:      skipCSRF,
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
		},
	})

	e.Use(cacheControlMiddleware)
}

// skipCSRF exempts bearer-token calls, which carry no ambient browser
// credential.
func skipCSRF(c echo.Context) bool {
	return bearerToken(c) != ""
}

// adminOnly authenticates the admin and then, for session-authenticated
// requests, checks the CSRF token. Public routes and login never pass
// through CSRF, so a stale session cookie cannot block them.
func (a *App) adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return a.requireAdmin(a.csrf(next))
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/uploads/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml":
			c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		case strings.HasPrefix(path, "/api/admin") || c.Request().Method != http.MethodGet:
			c.Response().Header().Set("Cache-Control", "no-store")
		case strings.HasPrefix(path, "/api/products") || strings.HasPrefix(path, "/api/blog"):
			c.Response().Header().Set("Cache-Control", "public, max-age=60")
		default:
			c.Response().Header().Set("Cache-Control", "no-cache")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(a.Config.TokenTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// requireAdmin authenticates the request by bearer token or session cookie
// and stores the admin in the context. The admin must still exist and be
// active.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := a.adminID(c)
		if err != nil {
			return err
		}
		admin, err := a.Services.Admins.Authenticate(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return err
		}
		c.Set(adminContextKey, admin)
		return next(c)
	}
}

// requireRole rejects authenticated admins whose role differs from role.
func requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if admin := CurrentAdmin(c); admin == nil || admin.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "requires the "+role+" role")
			}
			return next(c)
		}
	}
}

func (a *App) adminID(c echo.Context) (int64, error) {
	if tok := bearerToken(c); tok != "" {
		id, err := a.tokens.Parse(tok)
		if err != nil {
			return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		return id, nil
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, ok := sess.Values[sessionAdminKey].(int64)
	if !ok || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// CurrentAdmin returns the admin authenticated by requireAdmin.
func CurrentAdmin(c echo.Context) *store.Admin {
	admin, _ := c.Get(adminContextKey).(*store.Admin)
	return admin
}

func setAdminSession(c echo.Context, adminID int64) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionAdminKey] = adminID
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionAdminKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

// requestLogger returns the logger tagged with the request id.
func (a *App) requestLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(loggerKey).(zerolog.Logger); ok {
		return &l
	}
	return &a.Log
}
