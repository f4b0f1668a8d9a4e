package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentMethodTransfer = "bank_transfer"
	PaymentMethodCard     = "card"
	PaymentMethodCheck    = "check"
)

type Payment struct {
	ID        uint   `gorm:"primarykey"`
	InvoiceID uint   `gorm:"index;not null"`
	ClientID  uint   `gorm:"index;not null"`
	Amount    int64  `gorm:"not null"` // minor currency units
	Method    string `gorm:"size:16;not null"`
	Reference string `gorm:"uniqueIndex;size:64;not null"` // external payment reference
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == 0 {
		p.ID = GenerateID()
	}
	return nil
}
