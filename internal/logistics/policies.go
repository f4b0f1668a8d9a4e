package logistics

import (
	"context"
	"errors"
	"time"

	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

var policyStatuses = map[string]bool{
	model.PolicyStatusActive:  true,
	model.PolicyStatusExpired: true,
	model.PolicyStatusVoid:    true,
}

type CreatePolicyOptions struct {
	ClientID   uint
	ShipmentID uint
	Number     string
	Coverage   int64
	Premium    int64
	ExpiresAt  time.Time
}

func (s *Service) CreatePolicy(ctx context.Context, opts CreatePolicyOptions) (*model.Policy, error) {
	if _, err := s.activeClient(ctx, opts.ClientID); err != nil {
		return nil, err
	}
	// A policy always covers one concrete shipment of the insured client.
	if _, err := s.GetShipment(ctx, opts.ClientID, opts.ShipmentID); err != nil {
		return nil, err
	}

	policy := model.Policy{
		ClientID:   opts.ClientID,
		ShipmentID: opts.ShipmentID,
		Number:     opts.Number,
		Coverage:   opts.Coverage,
		Premium:    opts.Premium,
		Status:     model.PolicyStatusActive,
		ExpiresAt:  opts.ExpiresAt,
	}
	if err := s.policies.Create(ctx, &policy); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return &policy, nil
}

func (s *Service) GetPolicy(ctx context.Context, scope uint, policyID uint) (*model.Policy, error) {
	policy, err := s.policies.First(ctx, scoped(scope, []any{"id = ?", policyID})...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPolicyNotFound
	}
	return policy, err
}

func (s *Service) ListPolicies(ctx context.Context, scope uint, status string, limit, offset int) ([]*model.Policy, error) {
	var conds []any
	if status != "" {
		conds = []any{"status = ?", status}
	}
	return s.policies.Find(ctx, limit, offset, scoped(scope, conds)...)
}

func (s *Service) UpdatePolicyStatus(ctx context.Context, policyID uint, status string) error {
	if !policyStatuses[status] {
		return ErrInvalidStatus
	}
	affected, err := s.policies.Updates(ctx, policyID, map[string]interface{}{"status": status})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}
