// Package authz gates requests on the session principal's role class and,
// for client portal users, granular permissions. No session yields 401; a
// session with the wrong role or a missing permission yields 403.
package authz

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/middlewares/sessions"
	"github.com/haulerhq/freightdesk/internal/users"
	"github.com/haulerhq/freightdesk/model"
)

const principalContextKey = "principal"

type UserProvider interface {
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
}

type Middleware struct {
	users UserProvider
}

func New(users UserProvider) *Middleware {
	return &Middleware{
		users: users,
	}
}

// Principal returns the resolved principal attached by one of the Require
// middlewares, or nil before authorization ran.
func Principal(ctx *fiber.Ctx) *model.User {
	user, _ := ctx.Locals(principalContextKey).(*model.User)
	return user
}

// SetPrincipal attaches an already-resolved principal, bypassing session
// resolution.
func SetPrincipal(ctx *fiber.Ctx, user *model.User) {
	ctx.Locals(principalContextKey, user)
}

func (m *Middleware) resolve(ctx *fiber.Ctx) (*model.User, error) {
	if user := Principal(ctx); user != nil {
		return user, nil
	}

	sess := sessions.Get(ctx)
	if sess == nil || !sess.IsLoggedIn() {
		return nil, fiber.ErrUnauthorized
	}

	user, err := m.users.GetUserByID(ctx.Context(), sess.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		// Principal deleted or deactivated after session issuance: the
		// session is invalid, not a server error.
		return nil, fiber.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, fiber.ErrUnauthorized
	}

	ctx.Locals(principalContextKey, user)
	return user, nil
}

// RequireAdmin passes only admin principals through.
func (m *Middleware) RequireAdmin() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		user, err := m.resolve(ctx)
		if err != nil {
			return err
		}
		if user.Role != model.RoleAdmin {
			return fiber.ErrForbidden
		}
		return ctx.Next()
	}
}

// RequireClient passes only client-portal principals through.
func (m *Middleware) RequireClient() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		user, err := m.resolve(ctx)
		if err != nil {
			return err
		}
		if user.Role != model.RoleClient {
			return fiber.ErrForbidden
		}
		return ctx.Next()
	}
}

// RequirePermission passes client principals holding the permission, with
// primary contacts implicitly holding everything.
func (m *Middleware) RequirePermission(perm string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		user, err := m.resolve(ctx)
		if err != nil {
			return err
		}
		if user.Role != model.RoleClient || !user.HasPermission(perm) {
			return fiber.ErrForbidden
		}
		return ctx.Next()
	}
}

// RequireSession passes any authenticated principal through, regardless of
// role class.
func (m *Middleware) RequireSession() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if _, err := m.resolve(ctx); err != nil {
			return err
		}
		return ctx.Next()
	}
}
