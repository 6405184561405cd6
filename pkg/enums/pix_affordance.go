package enums

import "fmt"

// PixAffordance is the action the payment step offers for PIX.
type PixAffordance string

const (
	PixAffordanceGenerate   PixAffordance = "generate"
	PixAffordanceGenerating PixAffordance = "generating"
	PixAffordanceGenerated  PixAffordance = "generated"
	PixAffordanceRegenerate PixAffordance = "regenerate"
)

var validPixAffordances = []PixAffordance{
	PixAffordanceGenerate,
	PixAffordanceGenerating,
	PixAffordanceGenerated,
	PixAffordanceRegenerate,
}

// String implements fmt.Stringer.
func (p PixAffordance) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PixAffordance.
func (p PixAffordance) IsValid() bool {
	for _, candidate := range validPixAffordances {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePixAffordance converts raw input into a PixAffordance.
func ParsePixAffordance(value string) (PixAffordance, error) {
	for _, candidate := range validPixAffordances {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pix affordance %q", value)
}
