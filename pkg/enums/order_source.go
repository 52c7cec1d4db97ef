package enums

import "fmt"

// OrderSource distinguishes customer-originated orders from walk-in sales.
type OrderSource string

const (
	OrderSourceOnline  OrderSource = "online"
	OrderSourceOffline OrderSource = "offline"
)

var validOrderSources = []OrderSource{
	OrderSourceOnline,
	OrderSourceOffline,
}

// String implements fmt.Stringer.
func (o OrderSource) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderSource.
func (o OrderSource) IsValid() bool {
	for _, candidate := range validOrderSources {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderSource converts raw input into an OrderSource.
func ParseOrderSource(value string) (OrderSource, error) {
	for _, candidate := range validOrderSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order source %q", value)
}
