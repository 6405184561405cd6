package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/shopspring/decimal"
)

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":       "R$ 0,00",
		"5":       "R$ 5,00",
		"58.9":    "R$ 58,90",
		"1234.5":  "R$ 1.234,50",
		"1234567": "R$ 1.234.567,00",
		"-5":      "-R$ 5,00",
	}
	for in, want := range cases {
		if got := FormatBRL(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatBRL(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestWhatsAppTextDelivery(t *testing.T) {
	text := WhatsAppText(sampleDraft(), "42")

	for _, want := range []string{
		"*Pedido Anne & Tom* #42",
		"Cliente: Maria Silva",
		"WhatsApp: 11987654321",
		"Entrega: Rua Voluntários da Pátria, 100, Santana (CEP 02012-000)",
		"- 2x Calabresa (Grande) - R$ 109,80",
		"  Sabores: Calabresa / Mussarela",
		"- 1x Doce de Leite (Broto) - R$ 32,00",
		"Taxa de entrega: R$ 6,00",
		"Desconto: -R$ 5,00",
		"Total: R$ 142,80",
		"Pagamento: Pix",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
	if strings.HasSuffix(text, "\n") {
		t.Fatal("expected no trailing newline")
	}
}

func TestWhatsAppTextPickupCash(t *testing.T) {
	d := sampleDraft()
	d.Contact.Pickup = true
	d.Discount = decimal.Zero
	d.PaymentMethod = "cash"
	change := decimal.NewFromInt(150)
	d.ChangeFor = &change

	text := WhatsAppText(d, "")
	if !strings.Contains(text, "Retirada no balcão") || strings.Contains(text, "Taxa de entrega") {
		t.Fatalf("unexpected pickup text:\n%s", text)
	}
	if strings.Contains(text, "Desconto") {
		t.Fatal("zero discount must be omitted")
	}
	if !strings.Contains(text, "Troco para: R$ 150,00") || !strings.Contains(text, "Pagamento: Dinheiro") {
		t.Fatalf("unexpected cash text:\n%s", text)
	}
	if strings.Contains(text, "#") {
		t.Fatal("no order number expected")
	}
}

func TestSummaryRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	store := storage.Scope(storage.NewMemoryBackend(), "sess-1", 0)

	none, err := LastSummary(ctx, store)
	if err != nil || none != nil {
		t.Fatalf("expected no summary, got %+v, %v", none, err)
	}

	summary := NewSummary(sampleDraft(), Order{ID: "ord-42", Number: "42"}, time.Now())
	if summary.PixPayment == nil || summary.BackendOrderID != "ord-42" || summary.WhatsAppText == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if err := SaveLastSummary(ctx, store, summary); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LastSummary(ctx, store)
	if err != nil || loaded == nil {
		t.Fatalf("load: %+v, %v", loaded, err)
	}
	if loaded.OrderNumber != "42" || !loaded.Total.Equal(summary.Total) || len(loaded.Items) != 2 {
		t.Fatalf("unexpected loaded summary %+v", loaded)
	}
	if loaded.Contact.Name != summary.Contact.Name {
		t.Fatalf("contact lost: %+v", loaded.Contact)
	}
}
