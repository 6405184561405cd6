package orders

import (
	"testing"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]enums.OrderStatus{
		"":                 enums.OrderStatusOpen,
		"  ":               enums.OrderStatusOpen,
		"finalizado":       enums.OrderStatusDone,
		"DONE":             enums.OrderStatusDone,
		"delivered":        enums.OrderStatusDone,
		"cancelado":        enums.OrderStatusCancelled,
		"cancelled":        enums.OrderStatusCancelled,
		"out_for_delivery": enums.OrderStatusOutForDelivery,
		"in_delivery":      enums.OrderStatusOutForDelivery,
		"preparing":        enums.OrderStatusPreparing,
		"em_preparo":       enums.OrderStatusPreparing,
		"open":             enums.OrderStatusOpen,
		"Aguardando":       enums.OrderStatus("aguardando"),
	}
	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestUnknownStatusIsNotActive(t *testing.T) {
	if NormalizeStatus("aguardando").IsActive() {
		t.Fatal("unknown statuses must not count as active")
	}
	if !NormalizeStatus("").IsActive() {
		t.Fatal("empty status maps to open, which is active")
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel(enums.OrderStatusOutForDelivery); got != "Saiu para entrega" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := StatusLabel(enums.OrderStatus("aguardando")); got != "aguardando" {
		t.Fatalf("unknown statuses keep their raw name, got %q", got)
	}
}
