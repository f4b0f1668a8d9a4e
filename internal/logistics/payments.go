package logistics

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

type RecordPaymentOptions struct {
	// ClientID scopes the invoice lookup; zero means unrestricted access.
	ClientID  uint
	InvoiceID uint
	Amount    int64
	Method    string
	// Reference is the external payment reference; generated when empty.
	Reference string
}

// RecordPayment registers a payment against an issued or overdue invoice and
// marks the invoice paid once the recorded total covers its amount. Payment
// insert and invoice update share one transaction.
func (s *Service) RecordPayment(ctx context.Context, opts RecordPaymentOptions) (*model.Payment, error) {
	invoice, err := s.GetInvoice(ctx, opts.ClientID, opts.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceStatusIssued && invoice.Status != model.InvoiceStatusOverdue {
		return nil, ErrInvoiceNotPayable
	}

	reference := opts.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	payment := model.Payment{
		InvoiceID: invoice.ID,
		ClientID:  invoice.ClientID,
		Amount:    opts.Amount,
		Method:    opts.Method,
		Reference: reference,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateReference
			}
			return err
		}
		var paid int64
		err := tx.Model(&model.Payment{}).
			Where("invoice_id = ?", invoice.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paid).Error
		if err != nil {
			return err
		}
		if paid >= invoice.Amount {
			return tx.Model(&model.Invoice{}).
				Where("id = ?", invoice.ID).
				Update("status", model.InvoiceStatusPaid).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Service) GetPayment(ctx context.Context, scope uint, paymentID uint) (*model.Payment, error) {
	payment, err := s.payments.First(ctx, scoped(scope, []any{"id = ?", paymentID})...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	return payment, err
}

func (s *Service) ListPayments(ctx context.Context, scope uint, invoiceID uint, limit, offset int) ([]*model.Payment, error) {
	var conds []any
	if invoiceID != 0 {
		conds = []any{"invoice_id = ?", invoiceID}
	}
	return s.payments.Find(ctx, limit, offset, scoped(scope, conds)...)
}
