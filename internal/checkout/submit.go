package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/annetom/pizzaria-checkout/internal/customers"
	"github.com/annetom/pizzaria-checkout/internal/orders"
	"github.com/annetom/pizzaria-checkout/internal/payments"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"go.uber.org/multierr"
)

const (
	MessageIncomplete      = "Dados incompletos para enviar o pedido."
	MessagePixFailed       = "Falha ao gerar o Pix. Tente novamente."
	MessageInProgress      = "Seu pedido já está sendo enviado."
	MessageSubmitCrashed   = "Ocorreu um erro ao enviar o pedido. Verifique sua conexão e tente novamente."
	MessageCustomerFailed  = "Não foi possível salvar seu cadastro. Tente novamente."
	MessageSubmitLockError = "Não foi possível iniciar o envio do pedido. Tente novamente."

	submitScope = "checkout-submit"
)

// SubmissionResult is the outcome of SubmitOrder. A failed result leaves the
// cart and the draft untouched, and Code classifies why it failed.
type SubmissionResult struct {
	Success        bool            `json:"success"`
	BackendOrderID string          `json:"backendOrderId,omitempty"`
	OrderNumber    string          `json:"orderNumber,omitempty"`
	Summary        *orders.Summary `json:"summary,omitempty"`
	Error          string          `json:"error,omitempty"`
	Code           errors.Code     `json:"code,omitempty"`
	Retryable      bool            `json:"retryable"`
}

func failure(code errors.Code, msg string, retryable bool) SubmissionResult {
	return SubmissionResult{Error: msg, Code: code, Retryable: retryable}
}

// outcomeCode classifies a failed submission step: retryable failures are
// dependency errors, the rest conflict with the current order state.
func outcomeCode(retryable bool) errors.Code {
	if retryable {
		return errors.CodeDependency
	}
	return errors.CodeStateConflict
}

func failureFrom(err error, fallback string) SubmissionResult {
	msg := fallback
	if typed := errors.As(err); typed != nil && typed.Message() != "" {
		msg = typed.Message()
	}
	retryable := errors.Retryable(err)
	return failure(outcomeCode(retryable), msg, retryable)
}

func (e *Engine) canSubmitLocked() bool {
	c := e.draft.Contact
	switch {
	case e.submitting, e.cart.Empty():
		return false
	case strings.TrimSpace(c.Name) == "", strings.TrimSpace(c.Phone) == "":
		return false
	case !c.Pickup && strings.TrimSpace(c.Street) == "":
		return false
	}
	return true
}

// SubmitOrder sends the checkout to the backend. The cart, the draft and the
// PIX session are only cleared once the backend confirmed the order.
func (e *Engine) SubmitOrder(ctx context.Context) (result SubmissionResult) {
	ctx = e.ctx(ctx)

	e.mu.Lock()
	e.touchLocked()
	if e.submitting {
		e.mu.Unlock()
		e.svc.Metrics.IncSubmission("duplicate")
		return failure(errors.CodeIdempotency, MessageInProgress, true)
	}
	if !e.canSubmitLocked() {
		e.mu.Unlock()
		e.svc.Metrics.IncSubmission("incomplete")
		return failure(errors.CodeValidation, MessageIncomplete, false)
	}
	e.submitting = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logg.Error(ctx, "checkout.submit.panic", fmt.Errorf("panic: %v", r))
			e.svc.Metrics.IncSubmission("panic")
			result = failure(errors.CodeDependency, MessageSubmitCrashed, true)
		}
	}()

	if e.svc.SubmitLock != nil {
		lockID := e.sessionID + ":" + e.cart.Fingerprint()
		acquired, err := e.svc.SubmitLock.Acquire(ctx, submitScope, lockID)
		if err != nil {
			e.logg.Error(ctx, "checkout.submit.lock_failed", err)
			e.svc.Metrics.IncSubmission("failed")
			return failure(errors.CodeDependency, MessageSubmitLockError, true)
		}
		if !acquired {
			e.svc.Metrics.IncSubmission("duplicate")
			return failure(errors.CodeIdempotency, MessageInProgress, true)
		}
		defer func() {
			if err := e.svc.SubmitLock.Release(context.WithoutCancel(ctx), submitScope, lockID); err != nil {
				e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "checkout.submit.unlock_failed")
			}
		}()
	}

	result = e.submit(ctx)
	if result.Success {
		e.svc.Metrics.IncSubmission("success")
	} else {
		e.svc.Metrics.IncSubmission("failed")
	}
	return result
}

func (e *Engine) submit(ctx context.Context) SubmissionResult {
	e.mu.Lock()
	contact := e.draft.Contact
	e.mu.Unlock()

	if strings.TrimSpace(contact.CustomerID) == "" {
		saved, err := e.svc.Customers.Ensure(ctx, customers.Profile{
			Name:         contact.Name,
			Phone:        contact.Phone,
			CEP:          contact.CEP,
			Street:       contact.Street,
			Neighborhood: contact.Neighborhood,
		})
		if err != nil {
			e.logg.Error(ctx, "checkout.submit.customer_failed", err)
			return failure(outcomeCode(errors.Retryable(err)), MessageCustomerFailed, errors.Retryable(err))
		}
		e.mu.Lock()
		e.draft.Contact.CustomerID = saved.ID.String()
		snap := e.draft
		e.mu.Unlock()
		if err := e.persist(ctx, snap); err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "checkout.submit.customer_persist_failed")
		}
	}

	e.mu.Lock()
	d := e.draft
	totals := e.totalsLocked()
	items := e.cart.Items()
	payer := e.payerLocked()
	e.mu.Unlock()

	var pixSnapshot *orders.PixSnapshot
	if d.PaymentMethod == enums.PaymentMethodPix {
		session := e.pix.Session()
		expired := session != nil && session.Expired(e.svc.Now())
		session, err := e.pix.CreateOrRefresh(ctx, payments.PixRequest{
			Force:      expired,
			Total:      totals.Total,
			Payer:      payer,
			ItemsCount: e.cart.ItemCount(),
		})
		if err != nil || session == nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", fmt.Sprint(err)), "checkout.submit.pix_failed")
			return failure(errors.CodeDependency, MessagePixFailed, true)
		}
		pixSnapshot = &orders.PixSnapshot{
			ProviderReference: session.ProviderReference,
			TransactionID:     session.TransactionID,
			CopiaColar:        session.CopiaColar,
			QRCode:            session.QRCode,
			ExpiresAt:         session.ExpiresAt,
		}
	}

	orderDraft := orders.Draft{
		Contact:       d.Contact,
		PaymentMethod: d.PaymentMethod,
		ChangeFor:     d.ChangeFor,
		Pix:           pixSnapshot,
		Items:         items,
		Subtotal:      totals.Subtotal,
		DeliveryFee:   totals.DeliveryFee,
		Discount:      totals.Discount,
		Total:         totals.Total,
	}
	now := e.svc.Now()
	order, err := e.svc.Orders.Create(ctx, orders.BuildCreateRequest(orderDraft, now))
	if err != nil {
		e.logg.Error(ctx, "checkout.submit.order_failed", err)
		return failureFrom(err, orders.MessageSubmitFailed)
	}

	ctx = e.logg.WithOrderID(ctx, order.ID)
	summary := orders.NewSummary(orderDraft, order, now)
	if err := e.finish(ctx, summary); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "checkout.submit.cleanup_incomplete")
	}
	e.logg.Info(ctx, "checkout.submit.succeeded")

	return SubmissionResult{
		Success:        true,
		BackendOrderID: order.ID,
		OrderNumber:    order.Number,
		Summary:        &summary,
	}
}

// finish stores the summary and resets the checkout after a confirmed order.
// The customer block is kept for the next order.
func (e *Engine) finish(ctx context.Context, summary orders.Summary) error {
	err := multierr.Combine(
		orders.SaveLastSummary(ctx, e.store, summary),
		e.cart.Clear(ctx),
		e.store.Remove(ctx, storage.KeyCheckoutDraft),
		e.store.Remove(ctx, storage.KeyPendingCardOrder),
	)
	e.pix.Reset()
	e.card.Reset()

	e.mu.Lock()
	contact := e.draft.Contact
	e.draft = DefaultDraft()
	e.draft.Contact = contact
	e.lastTotal = e.totalsLocked().Total
	e.mu.Unlock()
	return err
}

// LastSummary returns the confirmation of the session's last order.
func (e *Engine) LastSummary(ctx context.Context) (*orders.Summary, error) {
	return orders.LastSummary(ctx, e.store)
}
