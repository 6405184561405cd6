package delivery

import (
	"fmt"
	"math"

	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/shopspring/decimal"
)

// FeeTable maps a distance in km to a delivery fee using ordered bands.
// The first band covers [0, max0]; each following band covers (prevMax, max].
type FeeTable struct {
	bands []config.FeeBand
}

// NewFeeTable validates the bands: strictly ascending bounds, non-negative
// and non-decreasing prices.
func NewFeeTable(bands []config.FeeBand) (*FeeTable, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("at least one fee band is required")
	}
	for i, band := range bands {
		if math.IsNaN(band.MaxKm) || math.IsInf(band.MaxKm, 0) || band.MaxKm <= 0 {
			return nil, fmt.Errorf("fee band %d: max km must be a positive number", i)
		}
		if band.Price.IsNegative() {
			return nil, fmt.Errorf("fee band %d: price must be non-negative", i)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if band.MaxKm <= prev.MaxKm {
			return nil, fmt.Errorf("fee band %d: max km %.2f must exceed %.2f", i, band.MaxKm, prev.MaxKm)
		}
		if band.Price.LessThan(prev.Price) {
			return nil, fmt.Errorf("fee band %d: price %s is lower than %s", i, band.Price, prev.Price)
		}
	}

	copied := make([]config.FeeBand, len(bands))
	copy(copied, bands)
	return &FeeTable{bands: copied}, nil
}

// FeeForDistance returns the fee for km, or nil when km is not a finite
// non-negative number or lies beyond the last band.
func (t *FeeTable) FeeForDistance(km float64) *decimal.Decimal {
	if t == nil || math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return nil
	}
	for _, band := range t.bands {
		if km <= band.MaxKm {
			fee := band.Price
			return &fee
		}
	}
	return nil
}

// MaxKm is the upper bound of the last band.
func (t *FeeTable) MaxKm() float64 {
	if t == nil || len(t.bands) == 0 {
		return 0
	}
	return t.bands[len(t.bands)-1].MaxKm
}

// WithinRadius reports whether km lies inside the delivery radius. The boundary is inclusive.
func WithinRadius(km, maxKm float64) bool {
	if math.IsNaN(km) || km < 0 {
		return false
	}
	return km <= maxKm
}
