package enums

import "fmt"

// OrderStatus is the normalized lifecycle of a submitted order.
type OrderStatus string

const (
	OrderStatusOpen           OrderStatus = "open"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDone           OrderStatus = "done"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusOpen,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDone,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsActive reports whether the order is still moving through the kitchen or delivery.
func (o OrderStatus) IsActive() bool {
	switch o {
	case OrderStatusOpen, OrderStatusPreparing, OrderStatusOutForDelivery:
		return true
	}
	return false
}
