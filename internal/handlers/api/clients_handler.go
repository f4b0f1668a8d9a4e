package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/internal/logistics"
	"github.com/haulerhq/freightdesk/model"
)

type ClientsHandler struct {
	logistics *logistics.Service
	recorder  *audit.Recorder
}

func NewClientsHandler(logisticsService *logistics.Service, recorder *audit.Recorder) *ClientsHandler {
	return &ClientsHandler{
		logistics: logisticsService,
		recorder:  recorder,
	}
}

type clientResponse struct {
	ClientID     string    `json:"clientId"`
	CompanyName  string    `json:"companyName"`
	ContactName  string    `json:"contactName"`
	ContactEmail string    `json:"contactEmail"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newClientResponse(client *model.Client) clientResponse {
	return clientResponse{
		ClientID:     strconv.FormatUint(uint64(client.ID), 10),
		CompanyName:  client.CompanyName,
		ContactName:  client.ContactName,
		ContactEmail: client.ContactEmail,
		Phone:        client.Phone,
		Address:      client.Address,
		Active:       client.Active,
		CreatedAt:    client.CreatedAt,
	}
}

type createClientRequest struct {
	CompanyName  string `json:"companyName" validate:"required,max=128"`
	ContactName  string `json:"contactName" validate:"required,max=64"`
	ContactEmail string `json:"contactEmail" validate:"required,email,max=256"`
	Phone        string `json:"phone" validate:"max=32"`
	Address      string `json:"address" validate:"max=512"`
}

func (h *ClientsHandler) PostClient(ctx *fiber.Ctx) error {
	var req createClientRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	client, err := h.logistics.CreateClient(ctx.Context(), logistics.CreateClientOptions{
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Address:      req.Address,
	})
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionCreated, audit.EntityClient, client.ID, "company="+client.CompanyName)
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(newClientResponse(client)))
}

func (h *ClientsHandler) GetClient(ctx *fiber.Ctx) error {
	clientID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	client, err := h.logistics.GetClient(ctx.Context(), clientID)
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(newClientResponse(client)))
}

func (h *ClientsHandler) GetClients(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	clients, err := h.logistics.ListClients(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]clientResponse, 0, len(clients))
	for _, client := range clients {
		items = append(items, newClientResponse(client))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}

type updateClientRequest struct {
	CompanyName  *string `json:"companyName" validate:"omitempty,max=128"`
	ContactName  *string `json:"contactName" validate:"omitempty,max=64"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email,max=256"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	Address      *string `json:"address" validate:"omitempty,max=512"`
}

func (h *ClientsHandler) PatchClient(ctx *fiber.Ctx) error {
	clientID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req updateClientRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	columns := map[string]interface{}{}
	if req.CompanyName != nil {
		columns["company_name"] = *req.CompanyName
	}
	if req.ContactName != nil {
		columns["contact_name"] = *req.ContactName
	}
	if req.ContactEmail != nil {
		columns["contact_email"] = *req.ContactEmail
	}
	if req.Phone != nil {
		columns["phone"] = *req.Phone
	}
	if req.Address != nil {
		columns["address"] = *req.Address
	}
	if len(columns) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
	}
	if err := h.logistics.UpdateClient(ctx.Context(), clientID, columns); err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionUpdated, audit.EntityClient, clientID, "")

	client, err := h.logistics.GetClient(ctx.Context(), clientID)
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(newClientResponse(client)))
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *ClientsHandler) PutClientActive(ctx *fiber.Ctx) error {
	clientID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := h.logistics.SetClientActive(ctx.Context(), clientID, *req.Active); err != nil {
		return renderLogisticsError(ctx, err)
	}
	action := audit.ActionDeactivated
	if *req.Active {
		action = audit.ActionActivated
	}
	recordMutation(ctx, h.recorder, action, audit.EntityClient, clientID, "")
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}

func (h *ClientsHandler) DeleteClient(ctx *fiber.Ctx) error {
	clientID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := h.logistics.DeleteClient(ctx.Context(), clientID); err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionDeleted, audit.EntityClient, clientID, "")
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}
