package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/pkg/db/models"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

// Repository loads catalog variants for order creation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindVariantsByIDs returns the variants present among the given IDs, keyed
// by ID. Callers decide whether a missing variant is an error.
func (r *repository) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*models.ProductVariant{}, nil
	}

	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product variants")
	}

	variants := make(map[uuid.UUID]*models.ProductVariant, len(rows))
	for i := range rows {
		variants[rows[i].ID] = &rows[i]
	}
	return variants, nil
}
