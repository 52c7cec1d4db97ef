package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Prescription captures the optometric payload attached to an order.
type Prescription struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	PD        decimal.Decimal      `gorm:"column:pd;type:numeric(5,1);not null"`
	Notes     *string              `gorm:"column:notes"`
	Details   []PrescriptionDetail `gorm:"foreignKey:PrescriptionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// PrescriptionDetail holds the per-eye lens parameters.
type PrescriptionDetail struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PrescriptionID uuid.UUID       `gorm:"column:prescription_id;type:uuid;not null;uniqueIndex:uidx_rx_details_rx_eye"`
	Eye            string          `gorm:"column:eye;type:text;not null;uniqueIndex:uidx_rx_details_rx_eye;check:eye IN ('left','right')"`
	Sphere         decimal.Decimal `gorm:"column:sphere;type:numeric(5,2);not null"`
	Cylinder       decimal.Decimal `gorm:"column:cylinder;type:numeric(5,2);not null"`
	Axis           int             `gorm:"column:axis;not null;check:axis >= 0 AND axis <= 180"`
}
