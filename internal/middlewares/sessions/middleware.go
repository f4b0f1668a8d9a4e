package sessions

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/valyala/fasthttp"
)

const (
	sessionContextKey = "session"
)

// Get returns the request's session. The middleware guarantees one is present.
func Get(ctx *fiber.Ctx) *Session {
	sess, _ := ctx.Locals(sessionContextKey).(*Session)
	return sess
}

// Reset immediately deletes the current session and attaches a fresh one with
// the given data. Used at login to prevent session fixation.
func (s *Store) Reset(ctx *fiber.Ctx, data SessionData) (*Session, error) {
	if id := ctx.Cookies(s.CookieName); id != "" {
		err := s.Delete(ctx.Context(), id)
		if err != nil && err != store.ErrNotFound {
			return nil, err
		}
	}

	sess := newSession(s.Storage)
	sess.SessionData = data
	ctx.Locals(sessionContextKey, sess)
	return sess, nil
}

// Destroy deletes the current session and clears the cookie. Destroying an
// absent session succeeds.
func (s *Store) Destroy(ctx *fiber.Ctx) error {
	ctx.ClearCookie(s.CookieName)
	if id := ctx.Cookies(s.CookieName); id != "" {
		err := s.Delete(ctx.Context(), id)
		if err != nil && err != store.ErrNotFound {
			return err
		}
	}
	sess := newSession(s.Storage)
	ctx.Locals(sessionContextKey, sess)
	return nil
}

// Middleware loads the session referenced by the cookie (or attaches a fresh
// unsaved one) and persists it after the handler when it carries data.
func (s *Store) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if id := ctx.Cookies(s.CookieName); id != "" {
			sess, err := s.Get(ctx.Context(), id)
			if err == nil {
				ctx.Locals(sessionContextKey, sess)
			} else if err != store.ErrNotFound {
				slog.Error("Could not load session", "id", id, "error", err)
				return fiber.ErrInternalServerError
			}
		}
		if Get(ctx) == nil {
			ctx.Locals(sessionContextKey, newSession(s.Storage))
		}

		if err := ctx.Next(); err != nil {
			return err
		}

		sess := Get(ctx)
		if sess != nil && (sess.SessionData != SessionData{}) {
			if err := s.Save(ctx.Context(), sess); err != nil {
				slog.Error("Could not save session", "id", sess.id, "error", err)
				return err
			}
			if sess.fresh {
				setCookie(ctx, &s.Config, sess)
			}
		}
		return nil
	}
}

func setCookie(ctx *fiber.Ctx, config *Config, s *Session) {
	fcookie := fasthttp.AcquireCookie()
	fcookie.SetKey(config.CookieName)
	fcookie.SetValue(s.id)
	fcookie.SetPath("/")
	fcookie.SetSecure(config.CookieSecure)
	// The session id must never be script readable, so this is not a knob.
	fcookie.SetHTTPOnly(true)
	fcookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	fcookie.SetMaxAge(int(config.SessionMaxAge.Seconds()))
	fcookie.SetExpire(time.Now().Add(config.SessionMaxAge))
	ctx.Response().Header.SetCookie(fcookie)
	fasthttp.ReleaseCookie(fcookie)
}
