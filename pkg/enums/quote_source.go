package enums

import "fmt"

// QuoteSource names where a delivery fee came from.
type QuoteSource string

const (
	QuoteSourceDistance     QuoteSource = "distance"
	QuoteSourceNeighborhood QuoteSource = "neighborhood"
)

var validQuoteSources = []QuoteSource{
	QuoteSourceDistance,
	QuoteSourceNeighborhood,
}

// String implements fmt.Stringer.
func (q QuoteSource) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteSource.
func (q QuoteSource) IsValid() bool {
	for _, candidate := range validQuoteSources {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteSource converts raw input into a QuoteSource.
func ParseQuoteSource(value string) (QuoteSource, error) {
	for _, candidate := range validQuoteSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote source %q", value)
}
