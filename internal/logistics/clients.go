package logistics

import (
	"context"
	"errors"

	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

type CreateClientOptions struct {
	CompanyName  string
	ContactName  string
	ContactEmail string
	Phone        string
	Address      string
}

func (s *Service) CreateClient(ctx context.Context, opts CreateClientOptions) (*model.Client, error) {
	client := model.Client{
		CompanyName:  opts.CompanyName,
		ContactName:  opts.ContactName,
		ContactEmail: opts.ContactEmail,
		Phone:        opts.Phone,
		Address:      opts.Address,
		Active:       true,
	}
	if err := s.clients.Create(ctx, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Service) GetClient(ctx context.Context, clientID uint) (*model.Client, error) {
	client, err := s.clients.First(ctx, "id = ?", clientID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	return client, err
}

func (s *Service) ListClients(ctx context.Context, limit, offset int) ([]*model.Client, error) {
	return s.clients.Find(ctx, limit, offset)
}

func (s *Service) UpdateClient(ctx context.Context, clientID uint, columns map[string]interface{}) error {
	affected, err := s.clients.Updates(ctx, clientID, columns)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrClientNotFound
	}
	return nil
}

// SetClientActive flips the client's activation flag. Portal users of an
// inactive client keep their sessions but every scoped read returns nothing
// new to act on; new shipments and payments are refused.
func (s *Service) SetClientActive(ctx context.Context, clientID uint, active bool) error {
	return s.UpdateClient(ctx, clientID, map[string]interface{}{"active": active})
}

func (s *Service) DeleteClient(ctx context.Context, clientID uint) error {
	affected, err := s.clients.Delete(ctx, clientID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrClientNotFound
	}
	return nil
}

// activeClient loads a client and fails when it is missing or switched off.
func (s *Service) activeClient(ctx context.Context, clientID uint) (*model.Client, error) {
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.Active {
		return nil, ErrClientInactive
	}
	return client, nil
}
