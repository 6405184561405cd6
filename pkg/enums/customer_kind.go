package enums

import "fmt"

// CustomerKind records whether checkout matched an existing backend customer.
type CustomerKind string

const (
	CustomerKindAuto     CustomerKind = "auto"
	CustomerKindExisting CustomerKind = "existing"
	CustomerKindNew      CustomerKind = "new"
)

var validCustomerKinds = []CustomerKind{
	CustomerKindAuto,
	CustomerKindExisting,
	CustomerKindNew,
}

// String implements fmt.Stringer.
func (c CustomerKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomerKind.
func (c CustomerKind) IsValid() bool {
	for _, candidate := range validCustomerKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomerKind converts raw input into a CustomerKind.
func ParseCustomerKind(value string) (CustomerKind, error) {
	for _, candidate := range validCustomerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer kind %q", value)
}
