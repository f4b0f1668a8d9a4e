package logistics

import (
	"context"
	"errors"

	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

var shipmentStatuses = map[string]bool{
	model.ShipmentStatusPending:   true,
	model.ShipmentStatusInTransit: true,
	model.ShipmentStatusDelivered: true,
	model.ShipmentStatusCancelled: true,
}

type CreateShipmentOptions struct {
	ClientID    uint
	Reference   string
	Origin      string
	Destination string
	WeightKg    float64
	Notes       string
}

func (s *Service) CreateShipment(ctx context.Context, opts CreateShipmentOptions) (*model.Shipment, error) {
	if _, err := s.activeClient(ctx, opts.ClientID); err != nil {
		return nil, err
	}

	shipment := model.Shipment{
		ClientID:    opts.ClientID,
		Reference:   opts.Reference,
		Origin:      opts.Origin,
		Destination: opts.Destination,
		Status:      model.ShipmentStatusPending,
		WeightKg:    opts.WeightKg,
		Notes:       opts.Notes,
	}
	if err := s.shipments.Create(ctx, &shipment); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return &shipment, nil
}

func (s *Service) GetShipment(ctx context.Context, scope uint, shipmentID uint) (*model.Shipment, error) {
	shipment, err := s.shipments.First(ctx, scoped(scope, []any{"id = ?", shipmentID})...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShipmentNotFound
	}
	return shipment, err
}

func (s *Service) ListShipments(ctx context.Context, scope uint, status string, limit, offset int) ([]*model.Shipment, error) {
	var conds []any
	if status != "" {
		conds = []any{"status = ?", status}
	}
	return s.shipments.Find(ctx, limit, offset, scoped(scope, conds)...)
}

func (s *Service) UpdateShipmentStatus(ctx context.Context, shipmentID uint, status string) error {
	if !shipmentStatuses[status] {
		return ErrInvalidStatus
	}
	affected, err := s.shipments.Updates(ctx, shipmentID, map[string]interface{}{"status": status})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func (s *Service) UpdateShipment(ctx context.Context, shipmentID uint, columns map[string]interface{}) error {
	affected, err := s.shipments.Updates(ctx, shipmentID, columns)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func (s *Service) DeleteShipment(ctx context.Context, shipmentID uint) error {
	affected, err := s.shipments.Delete(ctx, shipmentID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrShipmentNotFound
	}
	return nil
}
