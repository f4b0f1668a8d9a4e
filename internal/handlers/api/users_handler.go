package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/internal/users"
	"github.com/haulerhq/freightdesk/model"
)

type UsersHandler struct {
	users    *users.UserService
	recorder *audit.Recorder
}

func NewUsersHandler(userService *users.UserService, recorder *audit.Recorder) *UsersHandler {
	return &UsersHandler{
		users:    userService,
		recorder: recorder,
	}
}

type createUserRequest struct {
	Username         string   `json:"username" validate:"required,alphanum,min=3,max=32"`
	FullName         string   `json:"fullName" validate:"required,max=64"`
	Email            string   `json:"email" validate:"required,email,max=256"`
	Password         string   `json:"password" validate:"required,min=8,max=128"`
	Role             string   `json:"role" validate:"required,oneof=admin client"`
	ClientID         uint     `json:"clientId" validate:"required_if=Role client"`
	IsPrimaryContact bool     `json:"isPrimaryContact"`
	Permissions      []string `json:"permissions" validate:"dive,oneof=shipments.view shipments.create invoices.view payments.create policies.view"`
}

func (h *UsersHandler) PostUser(ctx *fiber.Ctx) error {
	var req createUserRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(ctx.Context(), users.CreateUserOptions{
		Username:         req.Username,
		FullName:         req.FullName,
		Email:            req.Email,
		Password:         req.Password,
		Role:             req.Role,
		ClientID:         req.ClientID,
		IsPrimaryContact: req.IsPrimaryContact,
		Permissions:      req.Permissions,
	})
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		return ctx.Status(fiber.StatusConflict).JSON(
			NewErrorResponse(fiber.StatusConflict, "Username already taken"),
		)
	case errors.Is(err, users.ErrEmailRegistered):
		return ctx.Status(fiber.StatusConflict).JSON(
			NewErrorResponse(fiber.StatusConflict, "Email already registered"),
		)
	case errors.Is(err, users.ErrInvalidRole):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid role")
	case err != nil:
		return err
	}

	recordMutation(ctx, h.recorder, audit.ActionCreated, audit.EntityUser, user.ID, "username="+user.Username)
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(newUserInfoResponse(user)))
}

func (h *UsersHandler) GetUsers(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	list, err := h.users.ListUsers(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]userInfoResponse, 0, len(list))
	for _, user := range list {
		items = append(items, newUserInfoResponse(user))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}

func (h *UsersHandler) GetUser(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetUserByID(ctx.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "Not found"),
		)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(NewDataResponse(newUserInfoResponse(user)))
}

func (h *UsersHandler) PutUserActive(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := h.users.SetActive(ctx.Context(), userID, *req.Active); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(
				NewErrorResponse(fiber.StatusNotFound, "Not found"),
			)
		}
		return err
	}
	action := audit.ActionDeactivated
	if *req.Active {
		action = audit.ActionActivated
	}
	recordMutation(ctx, h.recorder, action, audit.EntityUser, userID, "")
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,oneof=shipments.view shipments.create invoices.view payments.create policies.view"`
}

func (h *UsersHandler) PutUserPermissions(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req setPermissionsRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	user, err := h.users.GetUserByID(ctx.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "Not found"),
		)
	}
	if err != nil {
		return err
	}
	if user.Role != model.RoleClient {
		return fiber.NewError(fiber.StatusBadRequest, "Permissions apply to client users only")
	}

	if err := h.users.SetPermissions(ctx.Context(), userID, req.Permissions); err != nil {
		return err
	}
	recordMutation(ctx, h.recorder, audit.ActionUpdated, audit.EntityUser, userID, "permissions updated")
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}
