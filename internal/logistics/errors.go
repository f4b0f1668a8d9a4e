package logistics

import "errors"

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrShipmentNotFound   = errors.New("shipment not found")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPolicyNotFound     = errors.New("policy not found")
	ErrDuplicateReference = errors.New("reference already exists")
	ErrClientInactive     = errors.New("client is inactive")
	ErrInvoiceNotPayable  = errors.New("invoice is not payable")
	ErrInvalidStatus      = errors.New("invalid status")
)
