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

type ShipmentsHandler struct {
	logistics *logistics.Service
	recorder  *audit.Recorder
}

func NewShipmentsHandler(logisticsService *logistics.Service, recorder *audit.Recorder) *ShipmentsHandler {
	return &ShipmentsHandler{
		logistics: logisticsService,
		recorder:  recorder,
	}
}

type shipmentResponse struct {
	ShipmentID  string    `json:"shipmentId"`
	ClientID    string    `json:"clientId"`
	Reference   string    `json:"reference"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	WeightKg    float64   `json:"weightKg"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newShipmentResponse(shipment *model.Shipment) shipmentResponse {
	return shipmentResponse{
		ShipmentID:  strconv.FormatUint(uint64(shipment.ID), 10),
		ClientID:    strconv.FormatUint(uint64(shipment.ClientID), 10),
		Reference:   shipment.Reference,
		Origin:      shipment.Origin,
		Destination: shipment.Destination,
		Status:      shipment.Status,
		WeightKg:    shipment.WeightKg,
		Notes:       shipment.Notes,
		CreatedAt:   shipment.CreatedAt,
	}
}

type createShipmentRequest struct {
	// ClientID is honored for admins only; portal users always create within
	// their own client.
	ClientID    uint    `json:"clientId"`
	Reference   string  `json:"reference" validate:"required,max=64"`
	Origin      string  `json:"origin" validate:"required,max=256"`
	Destination string  `json:"destination" validate:"required,max=256"`
	WeightKg    float64 `json:"weightKg" validate:"gte=0"`
	Notes       string  `json:"notes" validate:"max=1024"`
}

func (h *ShipmentsHandler) PostShipment(ctx *fiber.Ctx) error {
	var req createShipmentRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	principal := authz.Principal(ctx)
	clientID := req.ClientID
	if !principal.IsAdmin() {
		clientID = principal.ClientID
	}
	if clientID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "clientId is required")
	}

	shipment, err := h.logistics.CreateShipment(ctx.Context(), logistics.CreateShipmentOptions{
		ClientID:    clientID,
		Reference:   req.Reference,
		Origin:      req.Origin,
		Destination: req.Destination,
		WeightKg:    req.WeightKg,
		Notes:       req.Notes,
	})
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionCreated, audit.EntityShipment, shipment.ID, "reference="+shipment.Reference)
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(newShipmentResponse(shipment)))
}

func (h *ShipmentsHandler) GetShipment(ctx *fiber.Ctx) error {
	shipmentID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	scope := clientScope(authz.Principal(ctx))
	shipment, err := h.logistics.GetShipment(ctx.Context(), scope, shipmentID)
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(newShipmentResponse(shipment)))
}

func (h *ShipmentsHandler) GetShipments(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	scope := clientScope(authz.Principal(ctx))
	shipments, err := h.logistics.ListShipments(ctx.Context(), scope, ctx.Query("status"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]shipmentResponse, 0, len(shipments))
	for _, shipment := range shipments {
		items = append(items, newShipmentResponse(shipment))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,max=16"`
}

func (h *ShipmentsHandler) PutShipmentStatus(ctx *fiber.Ctx) error {
	shipmentID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req setStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := h.logistics.UpdateShipmentStatus(ctx.Context(), shipmentID, req.Status); err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionUpdated, audit.EntityShipment, shipmentID, "status="+req.Status)
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}

func (h *ShipmentsHandler) DeleteShipment(ctx *fiber.Ctx) error {
	shipmentID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := h.logistics.DeleteShipment(ctx.Context(), shipmentID); err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionDeleted, audit.EntityShipment, shipmentID, "")
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}
