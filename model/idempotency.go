package model

import "time"

const (
	IdempotencyStatusPending   = "pending"
	IdempotencyStatusCompleted = "completed"
)

// IdempotencyRecord stores the first response produced for a given request key.
// The unique index on Key makes the reserve step an insert-if-absent operation.
type IdempotencyRecord struct {
	ID           uint   `gorm:"primarykey"`
	Key          string `gorm:"uniqueIndex;size:128;not null"` // scoped per principal
	RequestHash  string `gorm:"size:64;not null"`
	Status       string `gorm:"size:16;not null"`
	ResponseCode int
	ResponseBody []byte    `gorm:"type:mediumblob"`
	ExpiresAt    time.Time `gorm:"index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_record"
}

func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
