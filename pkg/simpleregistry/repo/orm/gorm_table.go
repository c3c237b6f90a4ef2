package orm

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormTable implements Table on a gorm model. Rows are ordered by primary key.
type GormTable[M any] struct {
	db *gorm.DB
}

// NewGormTable creates a Table backed by db
func NewGormTable[M any](db *gorm.DB) *GormTable[M] {
	return &GormTable[M]{db: db}
}

func (t *GormTable[M]) FindOne(ctx context.Context, where Where) (*M, error) {
	var model M
	err := t.db.WithContext(ctx).Where(map[string]any(where)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

func (t *GormTable[M]) Find(ctx context.Context, where Where) ([]*M, error) {
	var models []*M
	if err := t.db.WithContext(ctx).Where(map[string]any(where)).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (t *GormTable[M]) Create(ctx context.Context, model *M) error {
	return t.db.WithContext(ctx).Create(model).Error
}

// Update writes every column of model to its existing row. Unlike gorm's
// Save it never inserts, so a row deleted in the meantime stays deleted.
func (t *GormTable[M]) Update(ctx context.Context, model *M) error {
	return t.db.WithContext(ctx).Model(model).Select("*").Updates(model).Error
}

func (t *GormTable[M]) Remove(ctx context.Context, where Where) (int64, error) {
	result := t.db.WithContext(ctx).Where(map[string]any(where)).Delete(new(M))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
