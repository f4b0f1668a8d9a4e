package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/model"
)

type AuditHandler struct {
	recorder *audit.Recorder
}

func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{
		recorder: recorder,
	}
}

type auditEntryResponse struct {
	ID         uint64    `json:"id"`
	ActorID    string    `json:"actorId,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newAuditEntryResponse(entry *model.AuditLogEntry) auditEntryResponse {
	resp := auditEntryResponse{
		ID:         entry.ID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		Detail:     entry.Detail,
		IP:         entry.IP,
		CreatedAt:  entry.CreatedAt,
	}
	if entry.ActorID != nil {
		resp.ActorID = strconv.FormatUint(uint64(*entry.ActorID), 10)
	}
	if entry.EntityID != nil {
		resp.EntityID = strconv.FormatUint(uint64(*entry.EntityID), 10)
	}
	return resp
}

// GetAuditLog lists audit entries newest first with optional filters.
// Admin only; entries are immutable so there is no mutation surface.
func (h *AuditHandler) GetAuditLog(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	filters := audit.Filters{
		Action:     ctx.Query("action"),
		EntityType: ctx.Query("entityType"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := ctx.Query("actorId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid actorId")
		}
		actorID := uint(id)
		filters.ActorID = &actorID
	}
	if raw := ctx.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid since timestamp")
		}
		filters.Since = &since
	}
	if raw := ctx.Query("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid until timestamp")
		}
		filters.Until = &until
	}

	entries, err := h.recorder.List(ctx.Context(), filters)
	if err != nil {
		return err
	}
	items := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, newAuditEntryResponse(entry))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}
