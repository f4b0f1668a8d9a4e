package audit

import (
	"context"
	"time"

	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

type Filters struct {
	ActorID    *uint
	Action     string
	EntityType string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

type EntryRepository interface {
	RecordEntry(ctx context.Context, entry *model.AuditLogEntry) error
	Find(ctx context.Context, filters Filters) ([]*model.AuditLogEntry, error)
}

type entryRepository struct {
	db *gorm.DB
}

func (r *entryRepository) RecordEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *entryRepository) Find(ctx context.Context, filters Filters) ([]*model.AuditLogEntry, error) {
	query := r.db.WithContext(ctx).Model(&model.AuditLogEntry{})
	if filters.ActorID != nil {
		query = query.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.EntityType != "" {
		query = query.Where("entity_type = ?", filters.EntityType)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	var entries []*model.AuditLogEntry
	err := query.Order("created_at DESC").Limit(limit).Offset(filters.Offset).Find(&entries).Error
	return entries, err
}

func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{
		db: db,
	}
}
