package checkout

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/annetom/pizzaria-checkout/internal/orders"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	StepCart = iota
	StepCustomer
	StepReview
	StepPayment
)

var stepNames = [...]string{"Carrinho", "Dados", "Revisão", "Pagamento"}

// StepName is the label of step in the checkout header.
func StepName(step int) string {
	if step < StepCart || step > StepPayment {
		return ""
	}
	return stepNames[step]
}

func clampStep(step int) int {
	switch {
	case step < StepCart:
		return StepCart
	case step > StepPayment:
		return StepPayment
	}
	return step
}

// Draft is the in-progress checkout of one session.
type Draft struct {
	Step          int                 `json:"step"`
	Contact       orders.Contact      `json:"customer"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Coupon        string              `json:"coupon"`
	Discount      decimal.Decimal     `json:"discount"`
	CustomerKind  enums.CustomerKind  `json:"customerKind"`
	ChangeFor     *decimal.Decimal    `json:"changeFor,omitempty"`
}

func DefaultDraft() Draft {
	return Draft{
		Step:          StepCart,
		PaymentMethod: enums.PaymentMethodPix,
		CustomerKind:  enums.CustomerKindAuto,
	}
}

// persistedDraft is the checkout_draft layout. Step is a float so a
// malformed value such as 2.5 does not discard the rest of the draft.
type persistedDraft struct {
	Step      *float64         `json:"passo,omitempty"`
	Payment   string           `json:"pagamento,omitempty"`
	Coupon    *string          `json:"cupom,omitempty"`
	Discount  *decimal.Decimal `json:"desconto,omitempty"`
	Kind      string           `json:"tipoCliente,omitempty"`
	ChangeFor *decimal.Decimal `json:"troco,omitempty"`
}

// loadDraft merges the persisted customer block and draft over the defaults.
// Unreadable entries are ignored.
func loadDraft(ctx context.Context, store storage.Store) (Draft, error) {
	d := DefaultDraft()

	var contact orders.Contact
	found, err := storage.GetJSON(ctx, store, storage.KeyCheckoutCliente, &contact)
	if err != nil && !stderrors.Is(err, storage.ErrDecode) {
		return d, err
	}
	if found && err == nil {
		d.Contact = contact
	}

	var saved persistedDraft
	found, err = storage.GetJSON(ctx, store, storage.KeyCheckoutDraft, &saved)
	if err != nil && !stderrors.Is(err, storage.ErrDecode) {
		return d, err
	}
	if !found || err != nil {
		return d, nil
	}

	if saved.Step != nil {
		d.Step = clampStep(int(*saved.Step))
	}
	if method, ok := ParsePaymentMethod(saved.Payment); ok {
		d.PaymentMethod = method
	}
	if saved.Coupon != nil {
		d.Coupon = *saved.Coupon
	}
	if saved.Discount != nil {
		d.Discount = *saved.Discount
	}
	if kind, ok := parseKindAlias(saved.Kind); ok {
		d.CustomerKind = kind
	}
	d.ChangeFor = saved.ChangeFor
	return d, nil
}

func saveDraft(ctx context.Context, store storage.Store, d Draft) error {
	step := float64(d.Step)
	coupon := d.Coupon
	discount := d.Discount
	saved := persistedDraft{
		Step:      &step,
		Payment:   string(d.PaymentMethod),
		Coupon:    &coupon,
		Discount:  &discount,
		Kind:      string(d.CustomerKind),
		ChangeFor: d.ChangeFor,
	}
	return multierr.Combine(
		storage.SetJSON(ctx, store, storage.KeyCheckoutCliente, d.Contact),
		storage.SetJSON(ctx, store, storage.KeyCheckoutDraft, saved),
	)
}

// ParsePaymentMethod also accepts the Portuguese names older clients stored.
func ParsePaymentMethod(raw string) (enums.PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cartao", "cartão", "credito", "crédito":
		return enums.PaymentMethodCard, true
	case "dinheiro":
		return enums.PaymentMethodCash, true
	}
	method, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	return method, err == nil
}

func parseKindAlias(raw string) (enums.CustomerKind, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "novo" {
		return enums.CustomerKindNew, true
	}
	kind, err := enums.ParseCustomerKind(value)
	return kind, err == nil
}
