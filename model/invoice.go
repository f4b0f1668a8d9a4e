package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusIssued  = "issued"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
	InvoiceStatusVoid    = "void"
)

type Invoice struct {
	ID         uint   `gorm:"primarykey"`
	ClientID   uint   `gorm:"index;not null"`
	ShipmentID uint   `gorm:"index"`
	Number     string `gorm:"uniqueIndex;size:32;not null"`
	Amount     int64  `gorm:"not null"` // minor currency units
	Currency   string `gorm:"size:3;not null"`
	Status     string `gorm:"size:16;not null;index"`
	DueDate    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == 0 {
		i.ID = GenerateID()
	}
	return nil
}
