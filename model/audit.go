package model

import "time"

// AuditLogEntry is an append-only record of one state-changing action.
// Entries are never updated or deleted once written.
type AuditLogEntry struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ActorID    *uint     `gorm:"index"`                  // nullable for pre-auth events like failed logins
	Action     string    `gorm:"size:64;not null;index"` // login, login_failed, shipment_created...
	EntityType string    `gorm:"size:32;not null;index"`
	EntityID   *uint     `gorm:"index"`
	Detail     string    `gorm:"size:512"`
	IP         string    `gorm:"size:45;not null"` // IPv4/IPv6
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
