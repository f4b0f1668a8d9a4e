package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	ShipmentStatusPending   = "pending"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
	ShipmentStatusCancelled = "cancelled"
)

type Shipment struct {
	ID          uint   `gorm:"primarykey"`
	ClientID    uint   `gorm:"index;not null"`
	Reference   string `gorm:"uniqueIndex;size:64;not null"`
	Origin      string `gorm:"size:256;not null"`
	Destination string `gorm:"size:256;not null"`
	Status      string `gorm:"size:16;not null;index"`
	WeightKg    float64
	Notes       string `gorm:"size:1024"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (s *Shipment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == 0 {
		s.ID = GenerateID()
	}
	return nil
}
