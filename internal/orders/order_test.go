package orders

import (
	"encoding/json"
	"testing"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
)

func TestParseCreatedShapes(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantID     string
		wantNumber string
	}{
		{"nested order", `{"success":true,"order":{"id":"ord-2024-0042","numeroPedido":42}}`, "ord-2024-0042", "42"},
		{"first item", `{"items":[{"id":"abc-77","codigoPedido":"A77"}]}`, "abc-77", "A77"},
		{"bare body", `{"id":"pedido-123"}`, "pedido-123", "123"},
		{"order id at top", `{"orderId":991,"order":{"status":"open"}}`, "991", "991"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order, err := ParseCreated(json.RawMessage(tc.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if order.ID != tc.wantID {
				t.Fatalf("expected id %q, got %q", tc.wantID, order.ID)
			}
			if order.Number != tc.wantNumber {
				t.Fatalf("expected number %q, got %q", tc.wantNumber, order.Number)
			}
			if order.Status != enums.OrderStatusOpen {
				t.Fatalf("expected open status, got %q", order.Status)
			}
		})
	}
}

func TestParseCreatedEmptyBody(t *testing.T) {
	order, err := ParseCreated(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if order.ID != "" || order.Number != "" {
		t.Fatalf("expected empty order, got %+v", order)
	}
}

func TestParseListShapes(t *testing.T) {
	bodies := []string{
		`[{"id":"a"},{"id":"b"}]`,
		`{"orders":[{"id":"a"},{"id":"b"}]}`,
		`{"items":[{"id":"a"},{"id":"b"}]}`,
	}
	for _, body := range bodies {
		list, err := ParseList(json.RawMessage(body))
		if err != nil {
			t.Fatalf("parse %s: %v", body, err)
		}
		if len(list) != 2 || list[1].ID != "b" {
			t.Fatalf("unexpected list for %s: %+v", body, list)
		}
	}
}

func TestParseOrderTotalPrecedence(t *testing.T) {
	cases := map[string]string{
		`{"id":"1","total":50,"totals":{"finalTotal":40}}`:    "50",
		`{"id":"1","totals":{"finalTotal":"40.5","total":1}}`: "40.5",
		`{"id":"1","totals":{"total":33}}`:                    "33",
		`{"id":"1","valorTotal":"12.9"}`:                      "12.9",
		`{"id":"1"}`:                                          "0",
	}
	for body, want := range cases {
		order, err := ParseOrder(json.RawMessage(body))
		if err != nil {
			t.Fatalf("parse %s: %v", body, err)
		}
		if order.Total.String() != want {
			t.Fatalf("%s: expected total %s, got %s", body, want, order.Total)
		}
	}
}

func TestParseOrderCreatedAtFallbacks(t *testing.T) {
	order, err := ParseOrder(json.RawMessage(`{"_id":"mongo-1","created_at":"2024-05-01T18:30:00Z","status":"em preparo"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if order.ID != "mongo-1" {
		t.Fatalf("expected _id fallback, got %q", order.ID)
	}
	if order.CreatedAt == nil || order.CreatedAt.Hour() != 18 {
		t.Fatalf("unexpected created at %v", order.CreatedAt)
	}
	if order.Status != enums.OrderStatusPreparing || order.StatusLabel != "Em preparação" {
		t.Fatalf("unexpected status %q / %q", order.Status, order.StatusLabel)
	}
}

func TestShortID(t *testing.T) {
	if got := (Order{ID: "abcdef123"}).ShortID(); got != "ef123" {
		t.Fatalf("unexpected short id %q", got)
	}
	if got := (Order{ID: "42"}).ShortID(); got != "42" {
		t.Fatalf("unexpected short id %q", got)
	}
}
