// Package csrf issues per-session tokens and rejects mutating requests from
// authenticated sessions that do not echo the token back.
package csrf

import (
	"context"
	"crypto/subtle"
	"path"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/common"
	"github.com/haulerhq/freightdesk/internal/middlewares/sessions"
	"github.com/haulerhq/freightdesk/params"
)

const (
	TokenHeader = "X-CSRF-Token"

	tokenField  = "csrf_token"
	expireField = "csrf_expire"
)

// Token returns the session's CSRF token, minting a new one when none exists
// or the current one has expired.
func Token(ctx context.Context, session *sessions.Session) (string, error) {
	var (
		token    string
		expireAt int64
	)
	if err := session.GetField(ctx, tokenField, &token); err == nil && token != "" {
		if err := session.GetField(ctx, expireField, &expireAt); err == nil {
			if time.Now().UnixMilli() < expireAt {
				return token, nil
			}
		}
	}

	token, err := common.GenerateSecret(32)
	if err != nil {
		return "", err
	}
	if err := session.SetField(ctx, tokenField, token); err != nil {
		return "", err
	}
	expireAt = time.Now().Add(params.CSRFTokenExpiration).UnixMilli()
	if err := session.SetField(ctx, expireField, expireAt); err != nil {
		return "", err
	}
	return token, nil
}

func verify(ctx *fiber.Ctx, session *sessions.Session) bool {
	presented := ctx.Get(TokenHeader)
	if presented == "" {
		return false
	}

	var (
		token    string
		expireAt int64
	)
	if err := session.GetField(ctx.Context(), tokenField, &token); err != nil || token == "" {
		return false
	}
	if err := session.GetField(ctx.Context(), expireField, &expireAt); err != nil {
		return false
	}
	if time.Now().UnixMilli() >= expireAt {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(presented)) == 1
}

type Config struct {
	// ExcludePaths are path patterns that skip verification, e.g. the login
	// endpoint where no session exists yet.
	ExcludePaths []string
}

func New(config Config) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		switch ctx.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return ctx.Next()
		}
		for _, p := range config.ExcludePaths {
			if ok, _ := path.Match(p, ctx.Path()); ok {
				return ctx.Next()
			}
		}

		session := sessions.Get(ctx)
		if session == nil || !session.IsLoggedIn() {
			return ctx.Next()
		}
		if !verify(ctx, session) {
			return fiber.NewError(fiber.StatusForbidden, "Invalid CSRF token")
		}
		return ctx.Next()
	}
}
