package logistics

import (
	"context"

	"gorm.io/gorm"
)

// repository is the shared persistence surface for all logistics entities.
// Scoped reads layer client isolation on top of the raw conditions.
type repository[T any] struct {
	db *gorm.DB
}

func (r *repository[T]) First(ctx context.Context, conds ...any) (*T, error) {
	var entity T
	query := r.db.WithContext(ctx)
	if len(conds) > 0 {
		query = query.Where(conds[0], conds[1:]...)
	}
	if err := query.First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repository[T]) Find(ctx context.Context, limit, offset int, conds ...any) ([]*T, error) {
	var entities []*T
	query := r.db.WithContext(ctx)
	if len(conds) > 0 {
		query = query.Where(conds[0], conds[1:]...)
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error
	return entities, err
}

func (r *repository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *repository[T]) Updates(ctx context.Context, id uint, columns map[string]interface{}) (int64, error) {
	var entity T
	ret := r.db.WithContext(ctx).Model(&entity).Where("id = ?", id).Updates(columns)
	return ret.RowsAffected, ret.Error
}

func (r *repository[T]) Delete(ctx context.Context, id uint) (int64, error) {
	var entity T
	ret := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity)
	return ret.RowsAffected, ret.Error
}
