package payments

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MessageCardLinkUnavailable = "Nao foi possivel gerar o link de pagamento. Tente novamente."

type CardBackend interface {
	CreateCard(ctx context.Context, payload any, idempotencyKey string) (*storeapi.Response, error)
}

// CardCheckout is a hosted card checkout the customer is redirected to.
type CardCheckout struct {
	URL               string          `json:"checkoutUrl"`
	IdempotencyKey    string          `json:"idempotencyKey"`
	TransactionID     string          `json:"transactionId,omitempty"`
	ProviderReference string          `json:"providerReference,omitempty"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	CreatedAt         time.Time       `json:"createdAt"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

type CardRequest struct {
	Total      decimal.Decimal
	Payer      Payer
	ItemsCount int
}

type CardManagerConfig struct {
	Backend  CardBackend
	Currency string
	Source   string
	Logger   *logger.Logger
	Now      func() time.Time
}

// CardManager keeps the card checkout link of one session so repeated
// submits reuse it until the total changes.
type CardManager struct {
	cfg CardManagerConfig

	mu       sync.Mutex
	checkout *CardCheckout
}

func NewCardManager(cfg CardManagerConfig) (*CardManager, error) {
	if cfg.Backend == nil {
		return nil, errors.New(errors.CodeInternal, "card backend is required")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = defaultCurrency
	}
	if strings.TrimSpace(cfg.Source) == "" {
		cfg.Source = defaultSource
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CardManager{cfg: cfg}, nil
}

// Create returns the cached checkout for the same total, or asks the backend for a new link.
func (m *CardManager) Create(ctx context.Context, req CardRequest) (*CardCheckout, error) {
	m.mu.Lock()
	if m.checkout != nil && m.checkout.Amount.Equal(req.Total) {
		out := *m.checkout
		m.mu.Unlock()
		return &out, nil
	}
	m.mu.Unlock()

	key := uuid.NewString()
	payload := buildPaymentRequest(req.Total, req.Payer, req.ItemsCount, m.cfg.Currency, m.cfg.Source)
	resp, err := m.cfg.Backend.CreateCard(ctx, payload, key)
	if err != nil {
		m.cfg.Logger.Error(ctx, "payments.card.create_failed", err)
		return nil, errors.Wrap(errors.CodeDependency, err, MessageCardLinkUnavailable)
	}
	if resp.Failed() {
		m.cfg.Logger.Warn(m.cfg.Logger.WithField(ctx, "status", resp.Status), "payments.card.rejected")
		return nil, errors.New(errors.CodeDependency, MessageCardLinkUnavailable)
	}

	reply, err := decodeReply(resp.Data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, MessageCardLinkUnavailable)
	}
	url := reply.cardURL()
	if url == "" {
		return nil, errors.New(errors.CodeDependency, MessageCardLinkUnavailable)
	}

	checkout := &CardCheckout{
		URL:               url,
		IdempotencyKey:    key,
		TransactionID:     reply.TransactionID.String(),
		ProviderReference: reply.ProviderReference.String(),
		Status:            reply.Status,
		Amount:            req.Total,
		CreatedAt:         m.cfg.Now().UTC(),
		Raw:               resp.Data,
	}
	if checkout.Status == "" {
		checkout.Status = "pending"
	}

	m.mu.Lock()
	m.checkout = checkout
	m.mu.Unlock()

	out := *checkout
	return &out, nil
}

func (m *CardManager) Checkout() *CardCheckout {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkout == nil {
		return nil
	}
	out := *m.checkout
	return &out
}

func (m *CardManager) Reset() {
	m.mu.Lock()
	m.checkout = nil
	m.mu.Unlock()
}
