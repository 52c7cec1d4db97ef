package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/pkg/db/models"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Stock{}); err != nil {
		t.Fatalf("migrate stock: %v", err)
	}
	return db
}

func seedStock(t *testing.T, db *gorm.DB, variantID uuid.UUID, onHand, reserved int) {
	t.Helper()
	row := models.Stock{VariantID: variantID, QuantityOnHand: onHand, QuantityReserved: reserved}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func loadStock(t *testing.T, db *gorm.DB, variantID uuid.UUID) models.Stock {
	t.Helper()
	var row models.Stock
	if err := db.First(&row, "variant_id = ?", variantID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return row
}

func TestReserveAndReleaseRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := uuid.New()
	seedStock(t, db, variant, 10, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := LockForUpdate(ctx, tx, []uuid.UUID{variant})
		if err != nil {
			return err
		}
		if err := Reserve(ctx, tx, locked, variant, 4); err != nil {
			return err
		}
		return Release(ctx, tx, locked, variant, 1)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	row := loadStock(t, db, variant)
	if row.QuantityOnHand != 10 || row.QuantityReserved != 3 {
		t.Fatalf("unexpected stock state: %+v", row)
	}
	if row.QuantityAvailable() != 7 {
		t.Fatalf("unexpected available: %d", row.QuantityAvailable())
	}
}

func TestReserveFailsWhenAvailableTooLow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := uuid.New()
	seedStock(t, db, variant, 10, 8)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := LockForUpdate(ctx, tx, []uuid.UUID{variant})
		if err != nil {
			return err
		}
		return Reserve(ctx, tx, locked, variant, 3)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("shortfall must carry the insufficiency sentinel, got %v", err)
	}

	row := loadStock(t, db, variant)
	if row.QuantityReserved != 8 {
		t.Fatalf("reservation leaked: %+v", row)
	}
}

func TestReleaseFailsWhenReservedWouldGoNegative(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := uuid.New()
	seedStock(t, db, variant, 5, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := LockForUpdate(ctx, tx, []uuid.UUID{variant})
		if err != nil {
			return err
		}
		return Release(ctx, tx, locked, variant, 2)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConsumeDecrementsBothCounters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := uuid.New()
	seedStock(t, db, variant, 10, 4)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := LockForUpdate(ctx, tx, []uuid.UUID{variant})
		if err != nil {
			return err
		}
		return Consume(ctx, tx, locked, variant, 4)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	row := loadStock(t, db, variant)
	if row.QuantityOnHand != 6 || row.QuantityReserved != 0 {
		t.Fatalf("unexpected stock state: %+v", row)
	}
}

func TestLockForUpdateMissingVariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	known := uuid.New()
	seedStock(t, db, known, 1, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := LockForUpdate(ctx, tx, []uuid.UUID{known, uuid.New()})
		return err
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInvalidQuantityRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := uuid.New()
	seedStock(t, db, variant, 5, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := LockForUpdate(ctx, tx, []uuid.UUID{variant})
		if err != nil {
			return err
		}
		return Reserve(ctx, tx, locked, variant, 0)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDedupeSortedOrdersAscending(t *testing.T) {
	t.Parallel()

	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	c := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	got := dedupeSorted([]uuid.UUID{c, a, b, a, c})
	want := []uuid.UUID{a, b, c}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], got[i])
		}
	}
}
