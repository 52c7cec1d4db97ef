package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type txProbe struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Value string    `gorm:"column:value"`
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:dbclient_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&txProbe{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return FromConn(conn, config.DBConfig{TxMaxRetries: 3, TxRetryBackoff: 1}, nil)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()
	id := uuid.New()

	wantErr := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&txProbe{ID: id, Value: "x"}).Error; err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	var count int64
	if err := client.DB().Model(&txProbe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("row survived rollback")
	}
}

func TestWithTxRetryReRunsTransientFailures(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	attempts := 0
	err := client.WithTxRetry(ctx, Serializable(), func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("pq: deadlock detected")
		}
		return tx.Create(&txProbe{ID: uuid.New(), Value: "ok"}).Error
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithTxRetryStopsOnDomainError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	attempts := 0
	wantErr := errors.New("insufficient stock")
	err := client.WithTxRetry(ctx, nil, func(tx *gorm.DB) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("domain errors must not retry, got %d attempts", attempts)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	t.Parallel()

	if !IsRetryable(errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)")) {
		t.Fatal("serialization failure should be retryable")
	}
	if !IsRetryable(errors.New("deadlock detected")) {
		t.Fatal("deadlock should be retryable")
	}
	if IsRetryable(errors.New("value too long for column")) {
		t.Fatal("data errors must not be retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}

func TestIsUniqueViolationMatchesSQLiteMessages(t *testing.T) {
	t.Parallel()

	err := errors.New("UNIQUE constraint failed: promo_usage_logs.order_id, promo_usage_logs.promotion_id")
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected generic match")
	}
	if !IsUniqueViolation(err, "promo_usage_logs") {
		t.Fatal("expected constraint-name match")
	}
	if IsUniqueViolation(err, "carts") {
		t.Fatal("unexpected match for unrelated constraint")
	}
}
