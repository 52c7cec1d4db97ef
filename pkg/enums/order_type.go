package enums

import "fmt"

// OrderType distinguishes immediately fulfillable orders from made-to-order ones.
type OrderType string

const (
	OrderTypeReadyStock   OrderType = "ready_stock"
	OrderTypePrescription OrderType = "prescription"
	OrderTypePreOrder     OrderType = "pre_order"
)

var validOrderTypes = []OrderType{
	OrderTypeReadyStock,
	OrderTypePrescription,
	OrderTypePreOrder,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ReservesStock reports whether orders of this type hold reserved units.
// Prescription and pre-order lines are made to order and never reserve.
func (o OrderType) ReservesStock() bool {
	return o == OrderTypeReadyStock
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
