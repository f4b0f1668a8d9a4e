package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/auth"
	"github.com/haulerhq/freightdesk/internal/middlewares/authz"
	"github.com/haulerhq/freightdesk/internal/middlewares/csrf"
	"github.com/haulerhq/freightdesk/internal/middlewares/sessions"
	"github.com/haulerhq/freightdesk/model"
)

type LoginService interface {
	Login(ctx context.Context, username, password, ip string) (*model.User, error)
	Logout(ctx context.Context, actorID uint, ip string)
}

type AuthHandler struct {
	loginService LoginService
	sessionStore *sessions.Store
}

func NewAuthHandler(loginService LoginService, sessionStore *sessions.Store) *AuthHandler {
	return &AuthHandler{
		loginService: loginService,
		sessionStore: sessionStore,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginResponse struct {
	User      userInfoResponse `json:"user"`
	CSRFToken string           `json:"csrfToken"`
}

func (h *AuthHandler) PostLogin(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	user, err := h.loginService.Login(ctx.Context(), req.Username, req.Password, ctx.IP())
	if err != nil {
		var locked *auth.LockedError
		switch {
		case errors.As(err, &locked):
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(locked.RemainingSeconds))
			message := fmt.Sprintf("Too many failed attempts, retry in %d seconds", locked.RemainingSeconds)
			return ctx.Status(fiber.StatusTooManyRequests).JSON(
				NewErrorResponse(fiber.StatusTooManyRequests, message),
			)
		case errors.Is(err, auth.ErrInvalidCredentials):
			return ctx.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse(fiber.StatusUnauthorized, "Invalid username or password"),
			)
		case errors.Is(err, auth.ErrAccountDeactivated):
			return ctx.Status(fiber.StatusForbidden).JSON(
				NewErrorResponse(fiber.StatusForbidden, "Account is deactivated"),
			)
		default:
			return err
		}
	}

	// A successful login always gets a brand new session id.
	now := time.Now().UnixMilli()
	sess, err := h.sessionStore.Reset(ctx, sessions.SessionData{
		IP:        ctx.IP(),
		UserID:    user.ID,
		LoginTime: now,
		LastSeen:  now,
	})
	if err != nil {
		return err
	}
	authz.SetPrincipal(ctx, user)

	token, err := csrf.Token(ctx.Context(), sess)
	if err != nil {
		slog.Error("Could not issue CSRF token", "userId", user.ID, "error", err)
		return fiber.ErrInternalServerError
	}
	return ctx.JSON(NewDataResponse(loginResponse{
		User:      newUserInfoResponse(user),
		CSRFToken: token,
	}))
}

// PostLogout always reports success, even without a live session.
func (h *AuthHandler) PostLogout(ctx *fiber.Ctx) error {
	sess := sessions.Get(ctx)
	if sess != nil && sess.IsLoggedIn() {
		h.loginService.Logout(ctx.Context(), sess.UserID, ctx.IP())
	}
	if err := h.sessionStore.Destroy(ctx); err != nil {
		slog.Error("Could not destroy session", "error", err)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}

type meResponse struct {
	User      userInfoResponse `json:"user"`
	CSRFToken string           `json:"csrfToken"`
}

func (h *AuthHandler) GetMe(ctx *fiber.Ctx) error {
	principal := authz.Principal(ctx)
	if principal == nil {
		return fiber.ErrUnauthorized
	}
	token, err := csrf.Token(ctx.Context(), sessions.Get(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(NewDataResponse(meResponse{
		User:      newUserInfoResponse(principal),
		CSRFToken: token,
	}))
}
