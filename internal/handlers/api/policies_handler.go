package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/internal/logistics"
	"github.com/haulerhq/freightdesk/internal/middlewares/authz"
	"github.com/haulerhq/freightdesk/model"
)

type PoliciesHandler struct {
	logistics *logistics.Service
	recorder  *audit.Recorder
}

func NewPoliciesHandler(logisticsService *logistics.Service, recorder *audit.Recorder) *PoliciesHandler {
	return &PoliciesHandler{
		logistics: logisticsService,
		recorder:  recorder,
	}
}

type policyResponse struct {
	PolicyID   string    `json:"policyId"`
	ClientID   string    `json:"clientId"`
	ShipmentID string    `json:"shipmentId"`
	Number     string    `json:"number"`
	Coverage   int64     `json:"coverage"`
	Premium    int64     `json:"premium"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newPolicyResponse(policy *model.Policy) policyResponse {
	return policyResponse{
		PolicyID:   strconv.FormatUint(uint64(policy.ID), 10),
		ClientID:   strconv.FormatUint(uint64(policy.ClientID), 10),
		ShipmentID: strconv.FormatUint(uint64(policy.ShipmentID), 10),
		Number:     policy.Number,
		Coverage:   policy.Coverage,
		Premium:    policy.Premium,
		Status:     policy.Status,
		ExpiresAt:  policy.ExpiresAt,
		CreatedAt:  policy.CreatedAt,
	}
}

type createPolicyRequest struct {
	ClientID   uint      `json:"clientId" validate:"required"`
	ShipmentID uint      `json:"shipmentId" validate:"required"`
	Number     string    `json:"number" validate:"required,max=32"`
	Coverage   int64     `json:"coverage" validate:"required,gt=0"`
	Premium    int64     `json:"premium" validate:"required,gt=0"`
	ExpiresAt  time.Time `json:"expiresAt" validate:"required"`
}

func (h *PoliciesHandler) PostPolicy(ctx *fiber.Ctx) error {
	var req createPolicyRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	policy, err := h.logistics.CreatePolicy(ctx.Context(), logistics.CreatePolicyOptions{
		ClientID:   req.ClientID,
		ShipmentID: req.ShipmentID,
		Number:     req.Number,
		Coverage:   req.Coverage,
		Premium:    req.Premium,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionCreated, audit.EntityPolicy, policy.ID, "number="+policy.Number)
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(newPolicyResponse(policy)))
}

func (h *PoliciesHandler) GetPolicy(ctx *fiber.Ctx) error {
	policyID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	scope := clientScope(authz.Principal(ctx))
	policy, err := h.logistics.GetPolicy(ctx.Context(), scope, policyID)
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(newPolicyResponse(policy)))
}

func (h *PoliciesHandler) GetPolicies(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	scope := clientScope(authz.Principal(ctx))
	policies, err := h.logistics.ListPolicies(ctx.Context(), scope, ctx.Query("status"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]policyResponse, 0, len(policies))
	for _, policy := range policies {
		items = append(items, newPolicyResponse(policy))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}

func (h *PoliciesHandler) PutPolicyStatus(ctx *fiber.Ctx) error {
	policyID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req setStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := h.logistics.UpdatePolicyStatus(ctx.Context(), policyID, req.Status); err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionUpdated, audit.EntityPolicy, policyID, "status="+req.Status)
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}
