package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Coupons maps discount codes to a flat discount.
type Coupons struct {
	table map[string]decimal.Decimal
}

// NewCoupons parses a code→amount table such as {"PRIMEIRA": "5.00"}.
func NewCoupons(raw map[string]string) (*Coupons, error) {
	table := make(map[string]decimal.Decimal, len(raw))
	for code, amount := range raw {
		key := NormalizeCoupon(code)
		if key == "" {
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("invalid discount for coupon %q: %w", code, err)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("discount for coupon %q must be non-negative", code)
		}
		table[key] = value
	}
	return &Coupons{table: table}, nil
}

// Discount returns the discount for code, or zero and false for unknown codes.
func (c *Coupons) Discount(code string) (decimal.Decimal, bool) {
	if c == nil {
		return decimal.Zero, false
	}
	value, ok := c.table[NormalizeCoupon(code)]
	if !ok {
		return decimal.Zero, false
	}
	return value, true
}

func NormalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
