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

type PaymentsHandler struct {
	logistics *logistics.Service
	recorder  *audit.Recorder
}

func NewPaymentsHandler(logisticsService *logistics.Service, recorder *audit.Recorder) *PaymentsHandler {
	return &PaymentsHandler{
		logistics: logisticsService,
		recorder:  recorder,
	}
}

type paymentResponse struct {
	PaymentID string    `json:"paymentId"`
	InvoiceID string    `json:"invoiceId"`
	ClientID  string    `json:"clientId"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"createdAt"`
}

func newPaymentResponse(payment *model.Payment) paymentResponse {
	return paymentResponse{
		PaymentID: strconv.FormatUint(uint64(payment.ID), 10),
		InvoiceID: strconv.FormatUint(uint64(payment.InvoiceID), 10),
		ClientID:  strconv.FormatUint(uint64(payment.ClientID), 10),
		Amount:    payment.Amount,
		Method:    payment.Method,
		Reference: payment.Reference,
		CreatedAt: payment.CreatedAt,
	}
}

type recordPaymentRequest struct {
	InvoiceID uint   `json:"invoiceId" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required,oneof=bank_transfer card check"`
	Reference string `json:"reference" validate:"max=64"`
}

func (h *PaymentsHandler) PostPayment(ctx *fiber.Ctx) error {
	var req recordPaymentRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	scope := clientScope(authz.Principal(ctx))
	payment, err := h.logistics.RecordPayment(ctx.Context(), logistics.RecordPaymentOptions{
		ClientID:  scope,
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	recordMutation(ctx, h.recorder, audit.ActionCreated, audit.EntityPayment, payment.ID, "reference="+payment.Reference)
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(newPaymentResponse(payment)))
}

func (h *PaymentsHandler) GetPayment(ctx *fiber.Ctx) error {
	paymentID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	scope := clientScope(authz.Principal(ctx))
	payment, err := h.logistics.GetPayment(ctx.Context(), scope, paymentID)
	if err != nil {
		return renderLogisticsError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(newPaymentResponse(payment)))
}

func (h *PaymentsHandler) GetPayments(ctx *fiber.Ctx) error {
	limit, offset := paginate(ctx)
	scope := clientScope(authz.Principal(ctx))
	invoiceID, _ := strconv.ParseUint(ctx.Query("invoiceId"), 10, 64)
	payments, err := h.logistics.ListPayments(ctx.Context(), scope, uint(invoiceID), limit, offset)
	if err != nil {
		return err
	}
	items := make([]paymentResponse, 0, len(payments))
	for _, payment := range payments {
		items = append(items, newPaymentResponse(payment))
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"items": items}))
}
