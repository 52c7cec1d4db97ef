package stock

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/framesmith/framesmith-backend/pkg/db/models"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

// ErrInsufficient marks conflicts caused by a shortfall of sellable units,
// so callers can classify them with errors.Is instead of parsing messages.
var ErrInsufficient = errors.New("insufficient stock")

// Locked is the set of stock rows held under row locks by the current
// transaction, keyed by variant ID. All ledger mutations require it: the lock
// must be acquired before reading the quantities a caller intends to act on.
type Locked map[uuid.UUID]*models.Stock

// LockForUpdate acquires exclusive row locks on the stock rows for every
// given variant in a single locking read. Variants are locked in ascending ID
// order so concurrent transactions touching overlapping sets cannot deadlock
// on lock order. Fails with a not-found error if any variant has no stock row.
func LockForUpdate(ctx context.Context, tx *gorm.DB, variantIDs []uuid.UUID) (Locked, error) {
	if len(variantIDs) == 0 {
		return Locked{}, nil
	}

	ids := dedupeSorted(variantIDs)

	query := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		// sqlite has no FOR UPDATE; its writers serialize on the file lock.
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.Stock
	if err := query.
		Where("variant_id IN ?", ids).
		Order("variant_id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking stock rows")
	}

	locked := make(Locked, len(rows))
	for i := range rows {
		locked[rows[i].VariantID] = &rows[i]
	}
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no stock row for variant %s", id))
		}
	}
	return locked, nil
}

// Reserve earmarks qty units of the variant for an unfulfilled order.
// The caller must hold the row lock via LockForUpdate.
func Reserve(ctx context.Context, tx *gorm.DB, locked Locked, variantID uuid.UUID, qty int) error {
	row, err := lockedRow(locked, variantID, qty)
	if err != nil {
		return err
	}
	if row.QuantityAvailable() < qty {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrInsufficient, fmt.Sprintf(
			"insufficient stock for variant %s: requested %d, available %d",
			variantID, qty, row.QuantityAvailable()))
	}
	row.QuantityReserved += qty
	return save(ctx, tx, row)
}

// Release returns qty previously reserved units to the sellable pool.
// Going negative means reservation accounting was corrupted upstream.
func Release(ctx context.Context, tx *gorm.DB, locked Locked, variantID uuid.UUID, qty int) error {
	row, err := lockedRow(locked, variantID, qty)
	if err != nil {
		return err
	}
	if row.QuantityReserved < qty {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
			"insufficient reserved stock for variant %s: releasing %d, reserved %d",
			variantID, qty, row.QuantityReserved))
	}
	row.QuantityReserved -= qty
	return save(ctx, tx, row)
}

// Consume removes qty units from both on-hand and reserved counts; used when
// an order completes and its reservation becomes a permanent decrement.
func Consume(ctx context.Context, tx *gorm.DB, locked Locked, variantID uuid.UUID, qty int) error {
	row, err := lockedRow(locked, variantID, qty)
	if err != nil {
		return err
	}
	if row.QuantityReserved < qty || row.QuantityOnHand < qty {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
			"insufficient reserved stock for variant %s: consuming %d, reserved %d, on hand %d",
			variantID, qty, row.QuantityReserved, row.QuantityOnHand))
	}
	row.QuantityOnHand -= qty
	row.QuantityReserved -= qty
	return save(ctx, tx, row)
}

func lockedRow(locked Locked, variantID uuid.UUID, qty int) (*models.Stock, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	row, ok := locked[variantID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no stock row for variant %s", variantID))
	}
	return row, nil
}

func save(ctx context.Context, tx *gorm.DB, row *models.Stock) error {
	if err := tx.WithContext(ctx).Save(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating stock row")
	}
	return nil
}

func dedupeSorted(variantIDs []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(variantIDs))
	ids := make([]uuid.UUID, 0, len(variantIDs))
	for _, id := range variantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && bytes.Compare(ids[j][:], ids[j-1][:]) < 0; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}
