package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	PolicyStatusActive  = "active"
	PolicyStatusExpired = "expired"
	PolicyStatusVoid    = "void"
)

// Policy is a cargo insurance policy attached to a shipment.
type Policy struct {
	ID         uint   `gorm:"primarykey"`
	ClientID   uint   `gorm:"index;not null"`
	ShipmentID uint   `gorm:"index;not null"`
	Number     string `gorm:"uniqueIndex;size:32;not null"`
	Coverage   int64  `gorm:"not null"` // covered value, minor currency units
	Premium    int64  `gorm:"not null"`
	Status     string `gorm:"size:16;not null;index"`
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (p *Policy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == 0 {
		p.ID = GenerateID()
	}
	return nil
}
