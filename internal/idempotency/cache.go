// Package idempotency persists (key → prior response) records in the
// database so retried mutating requests return the original result without
// re-executing side effects. Records are shared across instances and survive
// restarts; the unique key index makes reservation an insert-if-absent
// operation.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

var (
	// ErrKeyReserved signals that another request already holds the key.
	ErrKeyReserved = errors.New("idempotency key already reserved")
)

type Cache interface {
	// Get returns the record for key, or nil on miss. Expired records are
	// purged lazily and reported as a miss.
	Get(ctx context.Context, key string) (*model.IdempotencyRecord, error)
	// Reserve claims the key with first-write-wins semantics.
	Reserve(ctx context.Context, key, requestHash string) error
	// Complete stores the canonical response for a reserved key.
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte) error
	// Release drops a reservation that will never complete, so a retry can
	// execute instead of replaying nothing.
	Release(ctx context.Context, key string) error
	// DeleteExpired removes records past their TTL and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}

type cache struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewCache(db *gorm.DB, ttl time.Duration) Cache {
	return &cache{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}
}

func (c *cache) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	if err := c.db.WithContext(ctx).Where("`key` = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if rec.Expired(c.now()) {
		_ = c.db.WithContext(ctx).Where("`key` = ?", key).Delete(&model.IdempotencyRecord{}).Error
		return nil, nil
	}
	return &rec, nil
}

func (c *cache) Reserve(ctx context.Context, key, requestHash string) error {
	rec := model.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      model.IdempotencyStatusPending,
		ExpiresAt:   c.now().Add(c.ttl),
	}
	var mysqlErr *mysql.MySQLError
	if err := c.db.WithContext(ctx).Create(&rec).Error; errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ErrKeyReserved
	} else if err != nil {
		return err
	}
	return nil
}

func (c *cache) Complete(ctx context.Context, key string, responseCode int, responseBody []byte) error {
	return c.db.WithContext(ctx).
		Model(&model.IdempotencyRecord{}).
		Where("`key` = ?", key).
		Updates(map[string]any{
			"status":        model.IdempotencyStatusCompleted,
			"response_code": responseCode,
			"response_body": responseBody,
		}).Error
}

func (c *cache) Release(ctx context.Context, key string) error {
	return c.db.WithContext(ctx).
		Where("`key` = ? AND status = ?", key, model.IdempotencyStatusPending).
		Delete(&model.IdempotencyRecord{}).Error
}

func (c *cache) DeleteExpired(ctx context.Context) (int64, error) {
	ret := c.db.WithContext(ctx).
		Where("expires_at < ?", c.now()).
		Delete(&model.IdempotencyRecord{})
	return ret.RowsAffected, ret.Error
}
