package logistics

import (
	"context"
	"errors"
	"time"

	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

var invoiceStatuses = map[string]bool{
	model.InvoiceStatusDraft:   true,
	model.InvoiceStatusIssued:  true,
	model.InvoiceStatusPaid:    true,
	model.InvoiceStatusOverdue: true,
	model.InvoiceStatusVoid:    true,
}

type CreateInvoiceOptions struct {
	ClientID   uint
	ShipmentID uint
	Number     string
	Amount     int64
	Currency   string
	DueDate    time.Time
}

func (s *Service) CreateInvoice(ctx context.Context, opts CreateInvoiceOptions) (*model.Invoice, error) {
	if _, err := s.activeClient(ctx, opts.ClientID); err != nil {
		return nil, err
	}
	if opts.ShipmentID != 0 {
		// The referenced shipment must belong to the billed client.
		if _, err := s.GetShipment(ctx, opts.ClientID, opts.ShipmentID); err != nil {
			return nil, err
		}
	}

	invoice := model.Invoice{
		ClientID:   opts.ClientID,
		ShipmentID: opts.ShipmentID,
		Number:     opts.Number,
		Amount:     opts.Amount,
		Currency:   opts.Currency,
		Status:     model.InvoiceStatusIssued,
		DueDate:    opts.DueDate,
	}
	if err := s.invoices.Create(ctx, &invoice); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) GetInvoice(ctx context.Context, scope uint, invoiceID uint) (*model.Invoice, error) {
	invoice, err := s.invoices.First(ctx, scoped(scope, []any{"id = ?", invoiceID})...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	return invoice, err
}

func (s *Service) ListInvoices(ctx context.Context, scope uint, status string, limit, offset int) ([]*model.Invoice, error) {
	var conds []any
	if status != "" {
		conds = []any{"status = ?", status}
	}
	return s.invoices.Find(ctx, limit, offset, scoped(scope, conds)...)
}

func (s *Service) UpdateInvoiceStatus(ctx context.Context, invoiceID uint, status string) error {
	if !invoiceStatuses[status] {
		return ErrInvalidStatus
	}
	affected, err := s.invoices.Updates(ctx, invoiceID, map[string]interface{}{"status": status})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
