package checkout

import (
	"context"
	"strings"

	"github.com/annetom/pizzaria-checkout/internal/customers"
	"github.com/annetom/pizzaria-checkout/internal/delivery"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
)

const (
	MessageEmptyCart          = "Adicione ao menos uma pizza para continuar."
	MessageCustomerIncomplete = "Complete seus dados para continuar."
	MessageInvalidStep        = "Etapa inválida."
)

// Checklist lists what the customer step still needs, in display order.
func Checklist(d Draft, q delivery.Quote, distanceEnabled bool) []string {
	c := d.Contact
	missing := []string{}
	if d.CustomerKind == enums.CustomerKindAuto {
		missing = append(missing, "Escolha se ja e cliente ou primeira vez.")
	}
	if len(customers.Digits(c.Phone)) < customers.MinPhoneDigits {
		missing = append(missing, "Informe o WhatsApp com DDD.")
	}
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "Informe o nome completo.")
	}
	if c.Pickup {
		return missing
	}

	if len(customers.Digits(c.CEP)) != 8 {
		missing = append(missing, "Informe um CEP valido.")
	}
	if strings.TrimSpace(c.Street) == "" {
		missing = append(missing, "Informe o endereco completo.")
	}
	if strings.TrimSpace(c.Neighborhood) == "" {
		missing = append(missing, "Informe o bairro.")
	}
	switch q.Status {
	case enums.QuoteStatusLoading:
		missing = append(missing, "Calculando tempo de entrega...")
	case enums.QuoteStatusError:
		missing = append(missing, "Nao foi possivel calcular a entrega.")
	case enums.QuoteStatusOutOfRange:
		missing = append(missing, delivery.MessageOutOfRange)
	default:
		if q.Fee == nil && distanceEnabled {
			missing = append(missing, "Calcule a distancia da entrega.")
		}
	}
	return missing
}

// customerStepComplete is the 1→2 guard.
func customerStepComplete(d Draft, q delivery.Quote) bool {
	c := d.Contact
	if strings.TrimSpace(c.Name) == "" || len(customers.Digits(c.Phone)) < customers.MinPhoneDigits {
		return false
	}
	if c.Pickup {
		return true
	}
	return strings.TrimSpace(c.Street) != "" && q.Resolved()
}

func (e *Engine) guardAdvanceLocked() error {
	switch e.draft.Step {
	case StepCart:
		if e.cart.Empty() {
			return errors.New(errors.CodeValidation, MessageEmptyCart).
				WithDetails(map[string]any{"missing": []string{MessageEmptyCart}})
		}
	case StepCustomer:
		if !customerStepComplete(e.draft, e.quote) {
			return errors.New(errors.CodeValidation, MessageCustomerIncomplete).
				WithDetails(map[string]any{"missing": Checklist(e.draft, e.quote, e.resolver.Enabled())})
		}
	}
	return nil
}

// Advance moves to the next step when the current one is complete. At the
// payment step it does nothing.
func (e *Engine) Advance(ctx context.Context) (int, error) {
	e.mu.Lock()
	e.touchLocked()
	if e.draft.Step >= StepPayment {
		step := e.draft.Step
		e.mu.Unlock()
		return step, nil
	}
	if err := e.guardAdvanceLocked(); err != nil {
		step := e.draft.Step
		e.mu.Unlock()
		return step, err
	}
	e.draft.Step++
	snap := e.draft
	e.mu.Unlock()

	return snap.Step, e.persist(ctx, snap)
}

// Back moves one step back, never below the cart.
func (e *Engine) Back(ctx context.Context) (int, error) {
	e.mu.Lock()
	e.touchLocked()
	if e.draft.Step > StepCart {
		e.draft.Step--
	}
	snap := e.draft
	e.mu.Unlock()

	return snap.Step, e.persist(ctx, snap)
}

// GoTo jumps to step without running the guards.
func (e *Engine) GoTo(ctx context.Context, step int) (int, error) {
	e.mu.Lock()
	e.touchLocked()
	if step < StepCart || step > StepPayment {
		current := e.draft.Step
		e.mu.Unlock()
		return current, errors.New(errors.CodeValidation, MessageInvalidStep)
	}
	e.draft.Step = step
	snap := e.draft
	e.mu.Unlock()

	return snap.Step, e.persist(ctx, snap)
}
