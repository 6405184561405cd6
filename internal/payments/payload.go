package payments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrency = "BRL"
	defaultSource   = "anne-tom-app"
)

// Payer identifies the customer a payment is created for.
type Payer struct {
	ID    string
	Name  string
	Phone string
}

// AmountCents converts a BRL total to cents, never below 1.
func AmountCents(total decimal.Decimal) int64 {
	cents := total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents < 1 {
		return 1
	}
	return cents
}

type paymentCustomer struct {
	ID    *string `json:"id"`
	Name  string  `json:"name,omitempty"`
	Phone string  `json:"phone,omitempty"`
}

type paymentMetadata struct {
	Source     string      `json:"source"`
	OrderTotal json.Number `json:"orderTotal"`
	ItemsCount int         `json:"itemsCount"`
	CustomerID *string     `json:"customerId"`
}

type paymentRequest struct {
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Customer    paymentCustomer `json:"customer"`
	Metadata    paymentMetadata `json:"metadata"`
}

func buildPaymentRequest(total decimal.Decimal, payer Payer, itemsCount int, currency, source string) paymentRequest {
	var customerID *string
	if id := strings.TrimSpace(payer.ID); id != "" {
		customerID = &id
	}
	return paymentRequest{
		AmountCents: AmountCents(total),
		Currency:    currency,
		Customer: paymentCustomer{
			ID:    customerID,
			Name:  strings.TrimSpace(payer.Name),
			Phone: digits(payer.Phone),
		},
		Metadata: paymentMetadata{
			Source:     source,
			OrderTotal: types.Money(total),
			ItemsCount: itemsCount,
			CustomerID: customerID,
		},
	}
}

// providerReply covers the fields the payment backend returns for PIX and card.
type providerReply struct {
	Success           bool              `json:"success"`
	Payload           string            `json:"payload"`
	TransactionID     types.FlexID      `json:"transactionId"`
	ProviderReference types.FlexID      `json:"providerReference"`
	Status            string            `json:"status"`
	Amount            *decimal.Decimal  `json:"amount"`
	AmountCents       *int64            `json:"amount_cents"`
	QRCode            string            `json:"qrcode"`
	CopiaColar        string            `json:"copia_colar"`
	ExpiresAt         string            `json:"expiresAt"`
	ExpiresAtSnake    string            `json:"expires_at"`
	CheckoutURL       string            `json:"checkoutUrl"`
	URL               string            `json:"url"`
	Metadata          *providerMetadata `json:"metadata"`
}

type providerMetadata struct {
	URL         string `json:"url"`
	ProviderRaw *struct {
		URL string `json:"url"`
	} `json:"providerRaw"`
}

// cardURL resolves checkoutUrl, then metadata.providerRaw.url, then metadata.url, then url.
func (r providerReply) cardURL() string {
	if u := strings.TrimSpace(r.CheckoutURL); u != "" {
		return u
	}
	if r.Metadata != nil {
		if r.Metadata.ProviderRaw != nil {
			if u := strings.TrimSpace(r.Metadata.ProviderRaw.URL); u != "" {
				return u
			}
		}
		if u := strings.TrimSpace(r.Metadata.URL); u != "" {
			return u
		}
	}
	return strings.TrimSpace(r.URL)
}

func (r providerReply) expiresAt() *time.Time {
	raw := strings.TrimSpace(r.ExpiresAt)
	if raw == "" {
		raw = strings.TrimSpace(r.ExpiresAtSnake)
	}
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

func decodeReply(raw json.RawMessage) (providerReply, error) {
	var reply providerReply
	err := json.Unmarshal(raw, &reply)
	return reply, err
}

func digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
