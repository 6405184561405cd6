package payments

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MessagePixUnavailable = "Nao foi possivel gerar o Pix agora."

	expiringSoonWindow = 2 * time.Minute
)

type PixBackend interface {
	CreatePix(ctx context.Context, payload any, idempotencyKey string) (*storeapi.Response, error)
}

type pixObserver interface {
	IncPixSession(event string)
}

// PixSession is a created PIX charge.
type PixSession struct {
	IdempotencyKey    string          `json:"idempotencyKey"`
	TransactionID     string          `json:"transactionId,omitempty"`
	ProviderReference string          `json:"providerReference,omitempty"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	AmountCents       int64           `json:"amountCents"`
	QRCode            string          `json:"qrcode,omitempty"`
	CopiaColar        string          `json:"copiaColar,omitempty"`
	ExpiresAt         *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// SameCharge reports whether other is the charge s was created as. A
// regenerated or invalidated charge is never the same.
func (s *PixSession) SameCharge(other *PixSession) bool {
	if s == nil || other == nil {
		return false
	}
	return s.IdempotencyKey == other.IdempotencyKey && s.TransactionID == other.TransactionID
}

// Remaining is the time left before expiry, clamped at zero. The second
// value is false when the provider gave no expiry.
func (s *PixSession) Remaining(now time.Time) (time.Duration, bool) {
	if s == nil || s.ExpiresAt == nil {
		return 0, false
	}
	left := s.ExpiresAt.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

func (s *PixSession) Expired(now time.Time) bool {
	left, ok := s.Remaining(now)
	return ok && left == 0
}

// ExpiringSoon reports whether less than two minutes remain.
func (s *PixSession) ExpiringSoon(now time.Time) bool {
	left, ok := s.Remaining(now)
	return ok && left > 0 && left <= expiringSoonWindow
}

// HasData reports whether the customer has something to pay with.
func (s *PixSession) HasData() bool {
	return s != nil && (s.CopiaColar != "" || s.QRCode != "")
}

// PixRequest asks for a session covering Total.
type PixRequest struct {
	Force      bool
	Total      decimal.Decimal
	Payer      Payer
	ItemsCount int
}

type PixManagerConfig struct {
	Backend  PixBackend
	Currency string
	Source   string
	Epsilon  decimal.Decimal
	Logger   *logger.Logger
	Metrics  pixObserver
	Now      func() time.Time
	NewKey   func() string
}

// PixManager owns the PIX session of one checkout. Creation is serialized so
// concurrent callers never trigger duplicate provider calls.
type PixManager struct {
	cfg PixManagerConfig

	createMu sync.Mutex

	mu       sync.Mutex
	session  *PixSession
	key      string
	lastErr  string
	creating bool
	pending  decimal.Decimal
	gen      uint64
}

func NewPixManager(cfg PixManagerConfig) (*PixManager, error) {
	if cfg.Backend == nil {
		return nil, errors.New(errors.CodeInternal, "pix backend is required")
	}
	if cfg.Epsilon.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "pix invalidation epsilon must be non-negative")
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
	if cfg.NewKey == nil {
		cfg.NewKey = uuid.NewString
	}
	return &PixManager{cfg: cfg}, nil
}

// CreateOrRefresh returns the live session, or creates one. Force, or an
// expired session, always creates a new charge under a fresh idempotency key.
// Failures are remembered for LastError and returned as CodeDependency.
func (m *PixManager) CreateOrRefresh(ctx context.Context, req PixRequest) (*PixSession, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	now := m.cfg.Now()
	m.mu.Lock()
	if m.session != nil && !req.Force && !m.session.Expired(now) {
		session := *m.session
		m.mu.Unlock()
		m.observe("reused")
		return &session, nil
	}
	if m.key == "" || req.Force || (m.session != nil && m.session.Expired(now)) {
		m.key = m.cfg.NewKey()
	}
	key := m.key
	gen := m.gen
	m.lastErr = ""
	m.creating = true
	m.pending = req.Total
	m.mu.Unlock()

	session, failure := m.create(ctx, req, key)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creating = false
	if gen != m.gen {
		m.observe("discarded")
		return nil, errors.New(errors.CodeStateConflict, "o total mudou enquanto o Pix era gerado")
	}
	if failure != nil {
		m.lastErr = failure.Message()
		m.observe("failed")
		return nil, failure
	}
	m.session = session
	m.observe("created")
	out := *session
	return &out, nil
}

func (m *PixManager) create(ctx context.Context, req PixRequest, key string) (*PixSession, *errors.Error) {
	payload := buildPaymentRequest(req.Total, req.Payer, req.ItemsCount, m.cfg.Currency, m.cfg.Source)
	resp, err := m.cfg.Backend.CreatePix(ctx, payload, key)
	if err != nil {
		m.cfg.Logger.Error(ctx, "payments.pix.create_failed", err)
		return nil, errors.Wrap(errors.CodeDependency, err, MessagePixUnavailable)
	}

	reply, decodeErr := decodeReply(resp.Data)
	if !resp.OK || decodeErr != nil || !reply.Success || strings.TrimSpace(reply.Payload) == "" {
		msg := resp.Message()
		if msg == "" {
			msg = MessagePixUnavailable
		}
		m.cfg.Logger.Warn(m.cfg.Logger.WithFields(ctx, map[string]any{"status": resp.Status, "message": msg}), "payments.pix.rejected")
		return nil, errors.New(errors.CodeDependency, msg)
	}

	session := &PixSession{
		IdempotencyKey:    key,
		TransactionID:     reply.TransactionID.String(),
		ProviderReference: reply.ProviderReference.String(),
		Status:            reply.Status,
		Amount:            req.Total,
		AmountCents:       AmountCents(req.Total),
		QRCode:            reply.QRCode,
		CopiaColar:        reply.CopiaColar,
		ExpiresAt:         reply.expiresAt(),
		CreatedAt:         m.cfg.Now().UTC(),
	}
	if session.Status == "" {
		session.Status = "pending"
	}
	if reply.Amount != nil {
		session.Amount = *reply.Amount
	}
	if reply.AmountCents != nil && *reply.AmountCents > 0 {
		session.AmountCents = *reply.AmountCents
	}
	if session.CopiaColar == "" {
		session.CopiaColar = reply.Payload
	}
	m.cfg.Logger.Info(m.cfg.Logger.WithField(ctx, "transaction_id", session.TransactionID), "payments.pix.created")
	return session, nil
}

// Session returns a copy of the current session, or nil.
func (m *PixManager) Session() *PixSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	out := *m.session
	return &out
}

// LastError is the user-facing message of the last failed creation.
func (m *PixManager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// OnTotalChanged drops the session when total moved by more than the
// configured epsilon. It reports whether the session was dropped.
func (m *PixManager) OnTotalChanged(total decimal.Decimal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	reference := m.pending
	switch {
	case m.session != nil:
		reference = m.session.Amount
	case !m.creating:
		return false
	}
	if total.Sub(reference).Abs().LessThanOrEqual(m.cfg.Epsilon) {
		return false
	}
	m.resetLocked()
	m.observe("invalidated")
	return true
}

// OnPaymentMethodChanged resets the session for anything but PIX.
func (m *PixManager) OnPaymentMethodChanged(method enums.PaymentMethod) {
	if method == enums.PaymentMethodPix {
		return
	}
	m.Reset()
}

// Reset forgets the session, the last error and the idempotency key. A
// creation in flight is discarded when it completes.
func (m *PixManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *PixManager) resetLocked() {
	m.session = nil
	m.key = ""
	m.lastErr = ""
	m.gen++
}

// Remaining is the live session's time to expiry.
func (m *PixManager) Remaining(now time.Time) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Remaining(now)
}

// Affordance tells the client which PIX action to offer.
func (m *PixManager) Affordance(now time.Time) enums.PixAffordance {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.creating:
		return enums.PixAffordanceGenerating
	case !m.session.HasData():
		return enums.PixAffordanceGenerate
	case m.session.Expired(now):
		return enums.PixAffordanceRegenerate
	}
	return enums.PixAffordanceGenerated
}

func (m *PixManager) observe(event string) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.IncPixSession(event)
	}
}
