package model

import (
	"time"

	"gorm.io/gorm"
)

// Client is a B2B customer account. Portal users reference it via User.ClientID.
type Client struct {
	ID           uint   `gorm:"primarykey"`
	CompanyName  string `gorm:"size:128;not null;index"`
	ContactName  string `gorm:"size:64;not null"`
	ContactEmail string `gorm:"size:256;not null"`
	Phone        string `gorm:"size:32"`
	Address      string `gorm:"size:512"`
	Active       bool   `gorm:"default:true;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = GenerateID()
	}
	return nil
}
