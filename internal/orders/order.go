package orders

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

// Order is the canonical shape of a backend order. Every backend response
// is normalized into it exactly once, at the client boundary.
type Order struct {
	ID          string            `json:"id"`
	Number      string            `json:"number,omitempty"`
	Status      enums.OrderStatus `json:"status"`
	StatusLabel string            `json:"statusLabel"`
	CustomerID  string            `json:"customerId,omitempty"`
	Total       decimal.Decimal   `json:"total"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	Raw         json.RawMessage   `json:"raw,omitempty"`
}

// ShortID is the tail of the order id shown to customers.
func (o Order) ShortID() string {
	if len(o.ID) <= 5 {
		return o.ID
	}
	return o.ID[len(o.ID)-5:]
}

func (o Order) Active() bool {
	return o.Status.IsActive()
}

type orderTotals struct {
	FinalTotal *decimal.Decimal `json:"finalTotal"`
	Total      *decimal.Decimal `json:"total"`
}

type rawOrder struct {
	ID           types.FlexID     `json:"id"`
	MongoID      types.FlexID     `json:"_id"`
	ShortID      types.FlexID     `json:"shortId"`
	NumeroPedido types.FlexID     `json:"numeroPedido"`
	CodigoPedido types.FlexID     `json:"codigoPedido"`
	Status       string           `json:"status"`
	CustomerID   types.FlexID     `json:"customerId"`
	Total        *decimal.Decimal `json:"total"`
	Totals       *orderTotals     `json:"totals"`
	ValorTotal   *decimal.Decimal `json:"valorTotal"`
	CreatedAt    string           `json:"createdAt"`
	CreatedAtSn  string           `json:"created_at"`
	Date         string           `json:"date"`
}

func (r rawOrder) total() decimal.Decimal {
	switch {
	case r.Total != nil:
		return *r.Total
	case r.Totals != nil && r.Totals.FinalTotal != nil:
		return *r.Totals.FinalTotal
	case r.Totals != nil && r.Totals.Total != nil:
		return *r.Totals.Total
	case r.ValorTotal != nil:
		return *r.ValorTotal
	}
	return decimal.Zero
}

func (r rawOrder) createdAt() *time.Time {
	for _, candidate := range []string{r.CreatedAt, r.CreatedAtSn, r.Date} {
		if candidate == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, candidate); err == nil {
				return &ts
			}
		}
	}
	return nil
}

func (r rawOrder) toOrder(raw json.RawMessage, fallbackID types.FlexID) Order {
	id := types.FirstID(r.ID, fallbackID, r.MongoID).String()
	status := NormalizeStatus(r.Status)
	return Order{
		ID:          id,
		Number:      humanNumber(r.NumeroPedido, r.CodigoPedido, r.ShortID, id),
		Status:      status,
		StatusLabel: StatusLabel(status),
		CustomerID:  string(r.CustomerID),
		Total:       r.total(),
		CreatedAt:   r.createdAt(),
		Raw:         raw,
	}
}

// humanNumber prefers the explicit order number and otherwise falls back to
// the last dash-separated segment of the id.
func humanNumber(numero, codigo, short types.FlexID, id string) string {
	if n := types.FirstID(numero, codigo, short); n != "" {
		return n.String()
	}
	if id == "" {
		return ""
	}
	parts := strings.Split(id, "-")
	return parts[len(parts)-1]
}

// ParseOrder normalizes one order object.
func ParseOrder(raw json.RawMessage) (Order, error) {
	var r rawOrder
	if err := json.Unmarshal(raw, &r); err != nil {
		return Order{}, errors.Wrap(errors.CodeDependency, err, "decode order")
	}
	return r.toOrder(raw, ""), nil
}

// ParseCreated normalizes the reply to an order submission. The order may
// be nested under "order", be the first of "items", or be the body itself.
func ParseCreated(body json.RawMessage) (Order, error) {
	var envelope struct {
		Order   json.RawMessage   `json:"order"`
		Items   []json.RawMessage `json:"items"`
		OrderID types.FlexID      `json:"orderId"`
		ID      types.FlexID      `json:"id"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return Order{}, errors.Wrap(errors.CodeDependency, err, "decode order reply")
		}
	}

	inner := body
	switch {
	case isObject(envelope.Order):
		inner = envelope.Order
	case len(envelope.Items) > 0 && isObject(envelope.Items[0]):
		inner = envelope.Items[0]
	}

	var r rawOrder
	if len(inner) > 0 {
		if err := json.Unmarshal(inner, &r); err != nil {
			return Order{}, errors.Wrap(errors.CodeDependency, err, "decode order reply")
		}
	}
	return r.toOrder(inner, types.FirstID(envelope.OrderID, envelope.ID)), nil
}

// ParseList accepts a bare array or an {orders} / {items} envelope.
func ParseList(body json.RawMessage) ([]Order, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		var envelope struct {
			Orders []json.RawMessage `json:"orders"`
			Items  []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "decode order list")
		}
		items = envelope.Orders
		if items == nil {
			items = envelope.Items
		}
	}

	out := make([]Order, 0, len(items))
	for _, item := range items {
		if !isObject(item) {
			continue
		}
		order, err := ParseOrder(item)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
