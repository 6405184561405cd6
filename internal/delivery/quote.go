package delivery

import (
	"fmt"
	"strings"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/shopspring/decimal"
)

const (
	MessageLookupFailed = "Nao foi possivel calcular o tempo de entrega."
	MessageOutOfRange   = "Endereco fora da area de entrega."
)

// Quote is the delivery fee state shown to the customer.
type Quote struct {
	Status       enums.QuoteStatus `json:"status"`
	Source       enums.QuoteSource `json:"source,omitempty"`
	Destination  string            `json:"destination,omitempty"`
	DistanceKm   *float64          `json:"distanceKm,omitempty"`
	DistanceText string            `json:"distanceText,omitempty"`
	DurationText string            `json:"durationText,omitempty"`
	Fee          *decimal.Decimal  `json:"fee,omitempty"`
	WithinRadius bool              `json:"withinRadius"`
	Error        string            `json:"error,omitempty"`
}

func IdleQuote() Quote {
	return Quote{Status: enums.QuoteStatusIdle}
}

func PickupQuote() Quote {
	zero := decimal.Zero
	return Quote{Status: enums.QuoteStatusPickup, Fee: &zero}
}

// NeighborhoodQuote prices delivery from the flat neighborhood table.
func NeighborhoodQuote(fees *NeighborhoodFees, neighborhood string) Quote {
	name := strings.TrimSpace(neighborhood)
	if name == "" {
		return IdleQuote()
	}
	fee := fees.FeeFor(name)
	return Quote{
		Status:       enums.QuoteStatusReady,
		Source:       enums.QuoteSourceNeighborhood,
		Destination:  name,
		Fee:          &fee,
		WithinRadius: true,
	}
}

// Resolved reports whether the quote carries a fee the checkout can use.
func (q Quote) Resolved() bool {
	if q.Fee == nil {
		return false
	}
	switch q.Status {
	case enums.QuoteStatusLoading, enums.QuoteStatusError, enums.QuoteStatusOutOfRange:
		return false
	}
	return true
}

// Label names where the fee came from, as shown next to the total.
func (q Quote) Label(neighborhood string) string {
	if q.Source == enums.QuoteSourceDistance && q.DistanceKm != nil && q.Fee != nil {
		return fmt.Sprintf("Distância (%.1f km)", *q.DistanceKm)
	}
	if name := strings.TrimSpace(neighborhood); name != "" {
		return "Bairro " + name
	}
	return "Taxa padrão"
}
