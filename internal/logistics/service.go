// Package logistics implements the business resources of the back office:
// clients, shipments, invoices, payments and insurance policies. Reads accept
// an optional client scope; a zero scope means unrestricted (admin) access.
package logistics

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	clients   repository[model.Client]
	shipments repository[model.Shipment]
	invoices  repository[model.Invoice]
	payments  repository[model.Payment]
	policies  repository[model.Policy]
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:        db,
		clients:   repository[model.Client]{db},
		shipments: repository[model.Shipment]{db},
		invoices:  repository[model.Invoice]{db},
		payments:  repository[model.Payment]{db},
		policies:  repository[model.Policy]{db},
	}
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// scoped prepends a client_id condition when the scope is non-zero.
func scoped(clientID uint, conds []any) []any {
	if clientID == 0 {
		return conds
	}
	if len(conds) == 0 {
		return []any{"client_id = ?", clientID}
	}
	query := "client_id = ? AND " + conds[0].(string)
	args := append([]any{query, clientID}, conds[1:]...)
	return args
}
