package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money renders a decimal as a bare JSON number with two decimal places.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// MoneyPtr is Money for optional amounts.
func MoneyPtr(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := Money(*d)
	return &n
}
