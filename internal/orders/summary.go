package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/annetom/pizzaria-checkout/internal/cart"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Summary is what the confirmation screen shows after a successful
// submission. It is persisted under lastOrderSummary.
type Summary struct {
	Items          []cart.Item         `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DeliveryFee    decimal.Decimal     `json:"taxaEntrega"`
	Discount       decimal.Decimal     `json:"desconto"`
	Total          decimal.Decimal     `json:"totalFinal"`
	PaymentMethod  enums.PaymentMethod `json:"pagamento"`
	PixPayment     *PixSnapshot        `json:"pixPayment"`
	Contact        Contact             `json:"dados"`
	WhatsAppText   string              `json:"waText"`
	OrderNumber    string              `json:"numeroPedido,omitempty"`
	OrderCode      string              `json:"codigoPedido,omitempty"`
	BackendOrderID string              `json:"backendOrderId,omitempty"`
	TrackingID     string              `json:"trackingId,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// NewSummary builds the confirmation for draft once the backend accepted it
// as order.
func NewSummary(d Draft, order Order, now time.Time) Summary {
	s := Summary{
		Items:          d.Items,
		Subtotal:       d.Subtotal,
		DeliveryFee:    d.DeliveryFee,
		Discount:       d.Discount,
		Total:          d.Total,
		PaymentMethod:  d.PaymentMethod,
		Contact:        d.Contact,
		OrderNumber:    order.Number,
		OrderCode:      order.Number,
		BackendOrderID: order.ID,
		TrackingID:     order.ID,
		CreatedAt:      now.UTC(),
	}
	if d.Contact.Pickup {
		s.DeliveryFee = decimal.Zero
	}
	if d.PaymentMethod == enums.PaymentMethodPix {
		s.PixPayment = d.Pix
	}
	s.WhatsAppText = WhatsAppText(d, order.Number)
	return s
}

// SaveLastSummary persists s for the confirmation and orders pages.
func SaveLastSummary(ctx context.Context, store storage.Store, s Summary) error {
	return storage.SetJSON(ctx, store, storage.KeyLastOrderSummary, s)
}

// LastSummary returns the most recent confirmation, or nil when none was
// stored or the stored value is unreadable.
func LastSummary(ctx context.Context, store storage.Store) (*Summary, error) {
	var s Summary
	found, err := storage.GetJSON(ctx, store, storage.KeyLastOrderSummary, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

var sizeCaser = cases.Title(language.BrazilianPortuguese)

// WhatsAppText renders the order as the plain-text message sent to the
// store over WhatsApp.
func WhatsAppText(d Draft, number string) string {
	var b strings.Builder
	c := d.Contact

	b.WriteString("*Pedido Anne & Tom*")
	if number != "" {
		fmt.Fprintf(&b, " #%s", number)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Cliente: %s\n", strings.TrimSpace(c.Name))
	fmt.Fprintf(&b, "WhatsApp: %s\n", digits(c.Phone))
	if c.Pickup {
		b.WriteString("Retirada no balcão\n")
	} else {
		fmt.Fprintf(&b, "Entrega: %s", strings.TrimSpace(c.Street))
		if n := strings.TrimSpace(c.Neighborhood); n != "" && !strings.Contains(c.Street, n) {
			fmt.Fprintf(&b, ", %s", n)
		}
		if cep := digits(c.CEP); cep != "" {
			fmt.Fprintf(&b, " (CEP %s)", formatCEP(cep))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nItens:\n")
	for _, item := range d.Items {
		fmt.Fprintf(&b, "- %dx %s (%s) - %s\n", item.Quantity, item.Name, sizeCaser.String(string(item.Size)), FormatBRL(item.LineTotal()))
		if len(item.FlavorNames) > 1 {
			fmt.Fprintf(&b, "  Sabores: %s\n", strings.Join(item.FlavorNames, " / "))
		}
		if item.BorderName != "" {
			fmt.Fprintf(&b, "  Borda: %s\n", item.BorderName)
		}
		if len(item.Extras) > 0 {
			fmt.Fprintf(&b, "  Extras: %s\n", strings.Join(item.Extras, ", "))
		}
		if item.Note != "" {
			fmt.Fprintf(&b, "  Obs: %s\n", item.Note)
		}
	}

	fmt.Fprintf(&b, "\nSubtotal: %s\n", FormatBRL(d.Subtotal))
	if !c.Pickup {
		fmt.Fprintf(&b, "Taxa de entrega: %s\n", FormatBRL(d.DeliveryFee))
	}
	if d.Discount.IsPositive() {
		fmt.Fprintf(&b, "Desconto: -%s\n", FormatBRL(d.Discount))
	}
	fmt.Fprintf(&b, "Total: %s\n", FormatBRL(d.Total))
	fmt.Fprintf(&b, "Pagamento: %s\n", d.PaymentMethod.Label())
	if d.PaymentMethod == enums.PaymentMethodCash && d.ChangeFor != nil && d.ChangeFor.IsPositive() {
		fmt.Fprintf(&b, "Troco para: %s\n", FormatBRL(*d.ChangeFor))
	}
	if notes := strings.TrimSpace(c.Notes); notes != "" {
		fmt.Fprintf(&b, "Obs: %s\n", notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatBRL formats an amount the Brazilian way, e.g. "R$ 1.234,50".
func FormatBRL(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), cents)
}

func formatCEP(cep string) string {
	if len(cep) != 8 {
		return cep
	}
	return cep[:5] + "-" + cep[5:]
}
