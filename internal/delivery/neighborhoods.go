package delivery

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultNeighborhoodFee applies to neighborhoods missing from the table.
var DefaultNeighborhoodFee = decimal.RequireFromString("10.00")

var defaultNeighborhoodFees = map[string]string{
	"Santana":          "6.00",
	"Parada Inglesa":   "6.00",
	"Água Fria":        "6.00",
	"Tucuruvi":         "7.00",
	"Mandaqui":         "7.00",
	"Jardim São Paulo": "7.00",
	"Casa Verde":       "8.00",
	"Vila Guilherme":   "8.00",
	"Vila Maria":       "9.00",
	"Jaçanã":           "9.00",
}

// NeighborhoodFees is a flat fee table keyed by folded neighborhood name.
type NeighborhoodFees struct {
	fees     map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewNeighborhoodFees builds the table from name→price pairs. A nil or empty
// map selects the built-in table.
func NewNeighborhoodFees(raw map[string]string, fallback decimal.Decimal) (*NeighborhoodFees, error) {
	if len(raw) == 0 {
		raw = defaultNeighborhoodFees
	}
	fees := make(map[string]decimal.Decimal, len(raw))
	for name, price := range raw {
		value, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil {
			return nil, err
		}
		fees[FoldName(name)] = value
	}
	return &NeighborhoodFees{fees: fees, fallback: fallback}, nil
}

// FeeFor returns the fee for name. Unknown names get the fallback fee.
func (n *NeighborhoodFees) FeeFor(name string) decimal.Decimal {
	if n == nil {
		return DefaultNeighborhoodFee
	}
	if fee, ok := n.fees[FoldName(name)]; ok {
		return fee
	}
	return n.fallback
}

// Known reports whether name has its own entry.
func (n *NeighborhoodFees) Known(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.fees[FoldName(name)]
	return ok
}

// FoldName strips accents, lowercases and collapses whitespace.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
