package enums

import "fmt"

// PizzaSize selects which price column of a flavor applies.
type PizzaSize string

const (
	PizzaSizeBroto  PizzaSize = "broto"
	PizzaSizeGrande PizzaSize = "grande"
)

var validPizzaSizes = []PizzaSize{
	PizzaSizeBroto,
	PizzaSizeGrande,
}

// String implements fmt.Stringer.
func (p PizzaSize) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PizzaSize.
func (p PizzaSize) IsValid() bool {
	for _, candidate := range validPizzaSizes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePizzaSize converts raw input into a PizzaSize.
func ParsePizzaSize(value string) (PizzaSize, error) {
	for _, candidate := range validPizzaSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pizza size %q", value)
}
