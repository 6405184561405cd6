package enums

import "fmt"

// QuoteStatus tracks a delivery quote through resolution.
type QuoteStatus string

const (
	QuoteStatusIdle       QuoteStatus = "idle"
	QuoteStatusLoading    QuoteStatus = "loading"
	QuoteStatusReady      QuoteStatus = "ready"
	QuoteStatusError      QuoteStatus = "error"
	QuoteStatusOutOfRange QuoteStatus = "out_of_range"
	QuoteStatusPickup     QuoteStatus = "pickup"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusIdle,
	QuoteStatusLoading,
	QuoteStatusReady,
	QuoteStatusError,
	QuoteStatusOutOfRange,
	QuoteStatusPickup,
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
