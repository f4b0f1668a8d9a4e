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

type InvoicesHandler struct {
	logistics *logistics.Service
	recorder  *audit.Recorder
}

func NewInvoicesHandler(logisticsService *logistics.Service, recorder *audit.Recorder) *InvoicesHandler {
	return &InvoicesHandler{
		logistics: logisticsService,
		recorder:  recorder,
	}
}

type invoiceResponse struct {
	InvoiceID  string    `json:"invoiceId"`
	ClientID   string    `json:"clientId"`
	ShipmentID string    `json:"shipmentId,omitempty"`
	Number     string    `json:"number"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	DueDate    time.Time `json:"dueDate"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newInvoiceResponse(invoice *model.Invoice) invoiceResponse {
	resp := invoiceResponse{
		InvoiceID: strconv.FormatUint(uint64(invoice.ID), 10),
		ClientID:  strconv.FormatUint(uint64(invoice.ClientID), 10),
		Number:    invoice.Number,
		Amount:    invoice.Amount,
		Currency:  invoice.Currency,
		Status:    invoice.Status,
		DueDate:   invoice.DueDate,
		CreatedAt: invoice.CreatedAt,
	}
	if invoice.ShipmentID != 0 {
		resp.ShipmentID = strconv.FormatUint(uint64(invoice.ShipmentID), 10)
	}
	return resp
}

type createInvoiceRequest struct {
	ClientID   uint      `json:"clientId" validate:"required"`
	ShipmentID uint      `json:"shipmentId"`
	Number     string    `json:"number" validate:"required,max=32"`
	Amount     int64     `json:"amount" validate:"required,gt=0"`
	Currency   string    `json:"currency" validate:"required,len=3"`
	DueDate    time.Time `json:"dueDate" validate:"required"`
}

func (h *InvoicesHandler) PostInvoice(ctx *fiber.Ctx) error {
	var req createInvoiceRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	invoice, err := h.logistics.CreateInvoice(ctx.Context(), logistics.CreateInvoiceOptions{
		ClientID:   req.ClientID,
		ShipmentID: req.ShipmentID,
		Number:     req.Number,
		Amount:     req.Amount,
		Currency:   req.Currency,
		DueDate:    req.DueDate,
	})
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionCreated, audit.EntityInvoice, invoice.ID, "number="+invoice.Number)
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(newInvoiceResponse(invoice)))
}

func (h *InvoicesHandler) GetInvoice(ctx *fiber.Ctx) error {
	invoiceID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	scope := clientScope(authz.Principal(ctx))
	invoice, err := h.logistics.GetInvoice(ctx.Context(), scope, invoiceID)
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(newInvoiceResponse(invoice)))
}

func (h *InvoicesHandler) GetInvoices(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	scope := clientScope(authz.Principal(ctx))
	invoices, err := h.logistics.ListInvoices(ctx.Context(), scope, ctx.Query("status"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]invoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		items = append(items, newInvoiceResponse(invoice))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}

func (h *InvoicesHandler) PutInvoiceStatus(ctx *fiber.Ctx) error {
	invoiceID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var req setStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := h.logistics.UpdateInvoiceStatus(ctx.Context(), invoiceID, req.Status); err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionUpdated, audit.EntityInvoice, invoiceID, "status="+req.Status)
	return ctx.JSON(NewDataResponse(fiber.Map{"success": true}))
}
