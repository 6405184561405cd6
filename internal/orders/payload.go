package orders

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/annetom/pizzaria-checkout/internal/cart"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	orderSource        = "website"
	paymentStatusOpen  = "pending"
	orderStatusCreated = "open"

	TypePickup   = "pickup"
	TypeDelivery = "delivery"
)

// CreateRequest is the body of POST /api/orders.
type CreateRequest struct {
	Source           string           `json:"source"`
	Type             string           `json:"type"`
	Status           string           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	CustomerID       *string          `json:"customerId"`
	CustomerSnapshot CustomerSnapshot `json:"customerSnapshot"`
	Payment          PaymentSnapshot  `json:"payment"`
	Delivery         DeliverySnapshot `json:"delivery"`
	Items            []LineItem       `json:"items"`
	Totals           Totals           `json:"totals"`
	Notes            string           `json:"notes,omitempty"`
}

type AddressSnapshot struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
}

type CustomerSnapshot struct {
	ID      *string         `json:"id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Address AddressSnapshot `json:"address"`
}

// PixSnapshot copies the PIX charge the order is paid with.
type PixSnapshot struct {
	ProviderReference string     `json:"providerReference,omitempty"`
	TransactionID     string     `json:"transactionId,omitempty"`
	CopiaColar        string     `json:"copiaColar,omitempty"`
	QRCode            string     `json:"qrcode,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}

type PaymentSnapshot struct {
	Method    string       `json:"method"`
	ChangeFor *json.Number `json:"changeFor"`
	Status    string       `json:"status"`
	Pix       *PixSnapshot `json:"pix"`
}

type DeliverySnapshot struct {
	Mode string      `json:"mode"`
	Fee  json.Number `json:"fee"`
}

type LineItem struct {
	LineID          string          `json:"lineId"`
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	Size            enums.PizzaSize `json:"size"`
	Quantity        int             `json:"quantity"`
	UnitPrice       json.Number     `json:"unitPrice"`
	LineTotal       json.Number     `json:"lineTotal"`
	IsHalfHalf      bool            `json:"isHalfHalf"`
	HalfDescription string          `json:"halfDescription,omitempty"`
	Border          string          `json:"border,omitempty"`
	Extras          []string        `json:"extras"`
	Note            string          `json:"note,omitempty"`
}

type Totals struct {
	Subtotal    json.Number `json:"subtotal"`
	DeliveryFee json.Number `json:"deliveryFee"`
	Discount    json.Number `json:"discount"`
	FinalTotal  json.Number `json:"finalTotal"`
}

// Contact is the customer block of a checkout. JSON names match the
// persisted checkout_cliente layout.
type Contact struct {
	Name         string `json:"nome"`
	Phone        string `json:"telefone"`
	CEP          string `json:"cep"`
	Street       string `json:"endereco"`
	Neighborhood string `json:"bairro"`
	Notes        string `json:"obsGerais"`
	Pickup       bool   `json:"retirada"`
	CustomerID   string `json:"customerId,omitempty"`
}

// Draft is everything the checkout knows about an order before it is sent.
type Draft struct {
	Contact       Contact
	PaymentMethod enums.PaymentMethod
	ChangeFor     *decimal.Decimal
	Pix           *PixSnapshot
	Items         []cart.Item
	Subtotal      decimal.Decimal
	DeliveryFee   decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

// BuildCreateRequest turns a checkout draft into the backend payload.
func BuildCreateRequest(d Draft, now time.Time) CreateRequest {
	c := d.Contact
	var customerID *string
	if id := strings.TrimSpace(c.CustomerID); id != "" {
		customerID = &id
	}

	orderType := TypeDelivery
	fee := d.DeliveryFee
	if c.Pickup {
		orderType = TypePickup
		fee = decimal.Zero
	}

	payment := PaymentSnapshot{
		Method: wireMethod(d.PaymentMethod),
		Status: paymentStatusOpen,
	}
	if d.PaymentMethod == enums.PaymentMethodCash {
		payment.ChangeFor = types.MoneyPtr(d.ChangeFor)
	}
	if d.PaymentMethod == enums.PaymentMethodPix {
		payment.Pix = d.Pix
	}

	return CreateRequest{
		Source:     orderSource,
		Type:       orderType,
		Status:     orderStatusCreated,
		CreatedAt:  now.UTC(),
		CustomerID: customerID,
		CustomerSnapshot: CustomerSnapshot{
			ID:    customerID,
			Name:  strings.TrimSpace(c.Name),
			Phone: digits(c.Phone),
			Address: AddressSnapshot{
				CEP:          c.CEP,
				Street:       c.Street,
				Neighborhood: c.Neighborhood,
			},
		},
		Payment:  payment,
		Delivery: DeliverySnapshot{Mode: orderType, Fee: types.Money(fee)},
		Items:    LineItems(d.Items),
		Totals: Totals{
			Subtotal:    types.Money(d.Subtotal),
			DeliveryFee: types.Money(fee),
			Discount:    types.Money(d.Discount),
			FinalTotal:  types.Money(d.Total),
		},
		Notes: strings.TrimSpace(c.Notes),
	}
}

// LineItems converts cart lines to order lines. Every line gets a fresh id.
func LineItems(items []cart.Item) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		extras := item.Extras
		if extras == nil {
			extras = []string{}
		}
		line := LineItem{
			LineID:     uuid.NewString(),
			ProductID:  types.FirstID(types.FlexID(item.ProductID), types.FlexID(item.ID)).String(),
			Name:       item.Name,
			Size:       item.Size,
			Quantity:   item.Quantity,
			UnitPrice:  types.Money(item.UnitPrice),
			LineTotal:  types.Money(item.LineTotal()),
			IsHalfHalf: len(item.FlavorIDs) > 1,
			Border:     item.BorderName,
			Extras:     extras,
			Note:       item.Note,
		}
		if line.IsHalfHalf {
			line.HalfDescription = strings.Join(item.FlavorNames, " / ")
		}
		out = append(out, line)
	}
	return out
}

// wireMethod maps payment methods to the names the backend stores.
func wireMethod(method enums.PaymentMethod) string {
	switch method {
	case enums.PaymentMethodCard:
		return "cartao"
	case enums.PaymentMethodCash:
		return "dinheiro"
	}
	return string(method)
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
