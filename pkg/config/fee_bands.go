package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FeeBand is one delivery fee range. The band covers distances up to and
// including MaxKm, starting just above the previous band's MaxKm.
type FeeBand struct {
	MaxKm float64
	Price decimal.Decimal
}

// FeeBands decodes "maxKm:price" pairs separated by commas, e.g. "1:3.50,2:5.90".
type FeeBands []FeeBand

// Decode implements envconfig.Decoder.
func (b *FeeBands) Decode(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		*b = nil
		return nil
	}

	pairs := strings.Split(trimmed, ",")
	bands := make(FeeBands, 0, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid fee band %q: expected maxKm:price", pair)
		}
		maxKm, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return fmt.Errorf("invalid fee band distance %q: %w", parts[0], err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid fee band price %q: %w", parts[1], err)
		}
		bands = append(bands, FeeBand{MaxKm: maxKm, Price: price})
	}

	*b = bands
	return nil
}
