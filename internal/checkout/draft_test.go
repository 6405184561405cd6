package checkout

import (
	"testing"

	"github.com/annetom/pizzaria-checkout/internal/delivery"
	"github.com/annetom/pizzaria-checkout/internal/orders"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoupons(t *testing.T) {
	coupons, err := NewCoupons(map[string]string{" primeira ": "5.00", "": "1"})
	require.NoError(t, err)

	discount, ok := coupons.Discount("Primeira")
	assert.True(t, ok)
	assert.Equal(t, "5.00", discount.StringFixed(2))

	discount, ok = coupons.Discount("OUTRO")
	assert.False(t, ok)
	assert.True(t, discount.IsZero())

	var none *Coupons
	_, ok = none.Discount("PRIMEIRA")
	assert.False(t, ok)

	_, err = NewCoupons(map[string]string{"X": "abc"})
	assert.Error(t, err)
	_, err = NewCoupons(map[string]string{"X": "-1"})
	assert.Error(t, err)
}

func TestPaymentAliases(t *testing.T) {
	cases := map[string]enums.PaymentMethod{
		"pix":      enums.PaymentMethodPix,
		"Cartão":   enums.PaymentMethodCard,
		"credito":  enums.PaymentMethodCard,
		"card":     enums.PaymentMethodCard,
		"dinheiro": enums.PaymentMethodCash,
		"cash":     enums.PaymentMethodCash,
	}
	for raw, want := range cases {
		got, ok := ParsePaymentMethod(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParsePaymentMethod("boleto")
	assert.False(t, ok)
}

func TestStepHelpers(t *testing.T) {
	assert.Equal(t, StepCart, clampStep(-3))
	assert.Equal(t, StepPayment, clampStep(9))
	assert.Equal(t, "Revisão", StepName(StepReview))
}

func TestChecklistForDelivery(t *testing.T) {
	d := DefaultDraft()
	d.CustomerKind = enums.CustomerKindNew
	d.Contact = orders.Contact{Name: "Ana", Phone: "11912345678", CEP: "123", Street: "Rua B, 2"}

	missing := Checklist(d, delivery.IdleQuote(), true)
	assert.Equal(t, []string{
		"Informe um CEP valido.",
		"Informe o bairro.",
		"Calcule a distancia da entrega.",
	}, missing)

	d.Contact.Pickup = true
	assert.Empty(t, Checklist(d, delivery.IdleQuote(), true))
	assert.True(t, customerStepComplete(d, delivery.IdleQuote()))
}
