// Package api contains the JSON handlers of both portals. Handlers stay thin:
// authorization and idempotency are middleware concerns, business rules live
// in the services, and every successful mutation is audited here.
package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/internal/logistics"
	"github.com/haulerhq/freightdesk/internal/middlewares/authz"
	"github.com/haulerhq/freightdesk/model"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func paginate(ctx *fiber.Ctx) (limit, offset int) {
	limit = ctx.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paramID(ctx *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

// clientScope narrows reads to the principal's own client; admins see all.
func clientScope(principal *model.User) uint {
	if principal == nil || principal.IsAdmin() {
		return 0
	}
	return principal.ClientID
}

// renderLogisticsError maps service errors to API statuses. Unknown errors
// bubble up to the central error handler as 500s.
func renderLogisticsError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, logistics.ErrClientNotFound),
		errors.Is(err, logistics.ErrShipmentNotFound),
		errors.Is(err, logistics.ErrInvoiceNotFound),
		errors.Is(err, logistics.ErrPaymentNotFound),
		errors.Is(err, logistics.ErrPolicyNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "Not found"),
		)
	case errors.Is(err, logistics.ErrDuplicateReference):
		return ctx.Status(fiber.StatusConflict).JSON(
			NewErrorResponse(fiber.StatusConflict, "Reference already exists"),
		)
	case errors.Is(err, logistics.ErrClientInactive):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(
			NewErrorResponse(fiber.StatusUnprocessableEntity, "Client is inactive"),
		)
	case errors.Is(err, logistics.ErrInvoiceNotPayable):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(
			NewErrorResponse(fiber.StatusUnprocessableEntity, "Invoice is not payable"),
		)
	case errors.Is(err, logistics.ErrInvalidStatus):
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Invalid status"),
		)
	default:
		return err
	}
}

// recordMutation audits a successful state change on behalf of the request's
// principal.
func recordMutation(ctx *fiber.Ctx, recorder *audit.Recorder, action, entityType string, entityID uint, detail string) {
	entry := audit.Entry{
		Action:     action,
		EntityType: entityType,
		Detail:     detail,
		IP:         ctx.IP(),
	}
	if principal := authz.Principal(ctx); principal != nil {
		entry.ActorID = &principal.ID
	}
	if entityID != 0 {
		entry.EntityID = &entityID
	}
	recorder.Record(ctx.Context(), entry)
}
