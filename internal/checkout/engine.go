package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/annetom/pizzaria-checkout/internal/address"
	"github.com/annetom/pizzaria-checkout/internal/cart"
	"github.com/annetom/pizzaria-checkout/internal/customers"
	"github.com/annetom/pizzaria-checkout/internal/delivery"
	"github.com/annetom/pizzaria-checkout/internal/menu"
	"github.com/annetom/pizzaria-checkout/internal/orders"
	"github.com/annetom/pizzaria-checkout/internal/payments"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/metrics"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/shopspring/decimal"
)

type catalogSource interface {
	Catalog(ctx context.Context) (*menu.Catalog, error)
}

type customerDirectory interface {
	FindByPhone(ctx context.Context, phone string) (*customers.Customer, error)
	Ensure(ctx context.Context, profile customers.Profile) (*customers.Customer, error)
}

type orderCreator interface {
	Create(ctx context.Context, req orders.CreateRequest) (orders.Order, error)
}

type submitGuard interface {
	Acquire(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

// PixSettings configures every session's PIX manager.
type PixSettings struct {
	Currency string
	Source   string
	Epsilon  decimal.Decimal
}

// Services are the collaborators shared by every session engine.
type Services struct {
	Catalog      catalogSource
	Customers    customerDirectory
	Addresses    address.Service
	Orders       orderCreator
	PixBackend   payments.PixBackend
	CardBackend  payments.CardBackend
	Distance     delivery.ResolverConfig
	Neighborhood *delivery.NeighborhoodFees
	Coupons      *Coupons
	Pix          PixSettings
	SubmitLock   submitGuard
	Logger       *logger.Logger
	Metrics      *metrics.CheckoutMetrics
	Now          func() time.Time
}

func (s *Services) validate() error {
	switch {
	case s == nil:
		return errors.New(errors.CodeInternal, "checkout services are required")
	case s.Catalog == nil:
		return errors.New(errors.CodeInternal, "menu catalog is required")
	case s.Customers == nil:
		return errors.New(errors.CodeInternal, "customer directory is required")
	case s.Orders == nil:
		return errors.New(errors.CodeInternal, "order service is required")
	case s.Neighborhood == nil:
		return errors.New(errors.CodeInternal, "neighborhood fees are required")
	}
	if s.Logger == nil {
		s.Logger = logger.Nop()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return nil
}

// Totals is the money breakdown of the current checkout.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	FeeLabel    string          `json:"feeLabel"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Engine owns the checkout of one session. All state access goes through mu;
// network calls run with mu released.
type Engine struct {
	sessionID string
	store     storage.Store
	svc       *Services
	logg      *logger.Logger

	cart     *cart.Cart
	pix      *payments.PixManager
	card     *payments.CardManager
	resolver *delivery.Resolver
	phones   customers.PhoneDedupe

	mu         sync.Mutex
	draft      Draft
	quote      delivery.Quote
	lastDest   string
	lastTotal  decimal.Decimal
	notice     string
	submitting bool
	lastSeen   time.Time
}

// NewEngine hydrates the session's cart and draft from store.
func NewEngine(ctx context.Context, sessionID string, store storage.Store, svc *Services) (*Engine, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New(errors.CodeValidation, "session id is required")
	}
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "session store is required")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	c, err := cart.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	draft, err := loadDraft(ctx, store)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load checkout draft")
	}
	draft.Discount, _ = svc.Coupons.Discount(draft.Coupon)

	pix, err := payments.NewPixManager(payments.PixManagerConfig{
		Backend:  svc.PixBackend,
		Currency: svc.Pix.Currency,
		Source:   svc.Pix.Source,
		Epsilon:  svc.Pix.Epsilon,
		Logger:   svc.Logger,
		Metrics:  svc.Metrics,
		Now:      svc.Now,
	})
	if err != nil {
		return nil, err
	}
	card, err := payments.NewCardManager(payments.CardManagerConfig{
		Backend:  svc.CardBackend,
		Currency: svc.Pix.Currency,
		Source:   svc.Pix.Source,
		Logger:   svc.Logger,
		Now:      svc.Now,
	})
	if err != nil {
		return nil, err
	}

	resolverCfg := svc.Distance
	resolverCfg.Logger = svc.Logger
	resolverCfg.Metrics = svc.Metrics
	resolver, err := delivery.NewResolver(resolverCfg)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "build distance resolver")
	}

	e := &Engine{
		sessionID: sessionID,
		store:     store,
		svc:       svc,
		logg:      svc.Logger,
		cart:      c,
		pix:       pix,
		card:      card,
		resolver:  resolver,
		draft:     draft,
		quote:     delivery.IdleQuote(),
		lastSeen:  svc.Now(),
	}
	resolver.OnUpdate(e.onQuote)

	e.mu.Lock()
	dest, schedule := e.syncQuoteLocked()
	e.lastTotal = e.totalsLocked().Total
	e.mu.Unlock()
	e.applyQuotePlan(dest, schedule)
	return e, nil
}

func (e *Engine) SessionID() string {
	return e.sessionID
}

// Close stops background work. The persisted state is kept.
func (e *Engine) Close() {
	e.resolver.Stop()
}

func (e *Engine) touchLocked() {
	e.lastSeen = e.svc.Now()
}

// LastSeen is when the session was last used.
func (e *Engine) LastSeen() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen
}

func (e *Engine) ctx(ctx context.Context) context.Context {
	return e.logg.WithSessionID(ctx, e.sessionID)
}

func (e *Engine) persist(ctx context.Context, d Draft) error {
	if err := saveDraft(ctx, e.store, d); err != nil {
		e.logg.Error(e.ctx(ctx), "checkout.draft.persist_failed", err)
		return errors.Wrap(errors.CodeDependency, err, "save checkout draft")
	}
	return nil
}

// --- delivery quote ---

func destinationFor(c orders.Contact) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{c.Street, c.Neighborhood} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// syncQuoteLocked brings the quote in line with the contact. When a distance
// lookup is needed it returns the destination to schedule once mu is released.
func (e *Engine) syncQuoteLocked() (string, bool) {
	c := e.draft.Contact
	if c.Pickup {
		wasPickup := e.quote.Status == enums.QuoteStatusPickup
		e.quote = delivery.PickupQuote()
		e.lastDest = ""
		return "", !wasPickup && e.resolver.Enabled()
	}
	if !e.resolver.Enabled() {
		e.quote = delivery.NeighborhoodQuote(e.svc.Neighborhood, c.Neighborhood)
		return "", false
	}
	dest := destinationFor(c)
	if dest == e.lastDest && e.quote.Status != enums.QuoteStatusPickup {
		return "", false
	}
	e.lastDest = dest
	if e.quote.Status == enums.QuoteStatusPickup {
		e.quote = delivery.IdleQuote()
	}
	return dest, true
}

// applyQuotePlan runs the resolver side of syncQuoteLocked. It must be
// called without mu held because the resolver notifies synchronously.
func (e *Engine) applyQuotePlan(dest string, schedule bool) {
	if !schedule {
		return
	}
	e.mu.Lock()
	pickup := e.draft.Contact.Pickup
	e.mu.Unlock()
	if pickup {
		e.resolver.Reset()
		return
	}
	e.resolver.Schedule(dest)
}

func (e *Engine) onQuote(q delivery.Quote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft.Contact.Pickup {
		return
	}
	if q.Destination != "" && q.Destination != e.lastDest {
		return
	}
	e.quote = q
	e.totalsChangedLocked()
}

// ResolveQuote runs the distance lookup now instead of waiting for the debounce.
func (e *Engine) ResolveQuote(ctx context.Context) delivery.Quote {
	e.mu.Lock()
	e.touchLocked()
	if e.draft.Contact.Pickup || !e.resolver.Enabled() {
		q := e.quote
		e.mu.Unlock()
		return q
	}
	dest := destinationFor(e.draft.Contact)
	e.lastDest = dest
	e.mu.Unlock()

	e.resolver.Resolve(e.ctx(ctx), dest)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quote
}

// --- totals ---

func (e *Engine) totalsLocked() Totals {
	t := Totals{
		Subtotal:    e.cart.Total(),
		DeliveryFee: decimal.Zero,
		Discount:    e.draft.Discount,
		FeeLabel:    e.quote.Label(e.draft.Contact.Neighborhood),
	}
	if !e.draft.Contact.Pickup && e.quote.Resolved() {
		t.DeliveryFee = *e.quote.Fee
	}
	if e.draft.Contact.Pickup {
		t.FeeLabel = "Retirada"
	}
	t.Total = t.Subtotal.Add(t.DeliveryFee).Sub(t.Discount)
	if t.Total.IsNegative() {
		t.Total = decimal.Zero
	}
	return t
}

// totalsChangedLocked forwards a new total to the payment managers.
func (e *Engine) totalsChangedLocked() {
	total := e.totalsLocked().Total
	if total.Equal(e.lastTotal) {
		return
	}
	e.lastTotal = total
	if e.pix.OnTotalChanged(total) {
		e.logg.Info(e.logg.WithField(e.ctx(context.Background()), "total", total.StringFixed(2)), "checkout.pix.invalidated")
	}
}

// Totals returns the current money breakdown.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalsLocked()
}

// --- cart ---

// AddItem prices sel against the menu and adds it to the cart.
func (e *Engine) AddItem(ctx context.Context, sel menu.Selection, quantity int, note string) (cart.Item, error) {
	if quantity <= 0 {
		quantity = 1
	}
	catalog, err := e.svc.Catalog.Catalog(ctx)
	if err != nil {
		return cart.Item{}, err
	}
	priced, err := catalog.Price(sel)
	if err != nil {
		return cart.Item{}, err
	}
	item := cart.FromPriced(sel, priced, quantity, note)
	if err := e.cart.Add(ctx, item); err != nil {
		return cart.Item{}, err
	}
	e.cartChanged()
	return item, nil
}

// UpdateItem sets the quantity of a line. Zero or less removes it.
func (e *Engine) UpdateItem(ctx context.Context, id string, size enums.PizzaSize, quantity int) error {
	if err := e.cart.Update(ctx, id, size, quantity); err != nil {
		return err
	}
	e.cartChanged()
	return nil
}

func (e *Engine) RemoveItem(ctx context.Context, id string, size enums.PizzaSize) error {
	if err := e.cart.Remove(ctx, id, size); err != nil {
		return err
	}
	e.cartChanged()
	return nil
}

func (e *Engine) ClearCart(ctx context.Context) error {
	if err := e.cart.Clear(ctx); err != nil {
		return err
	}
	e.cartChanged()
	return nil
}

func (e *Engine) Items() []cart.Item {
	return e.cart.Items()
}

func (e *Engine) cartChanged() {
	e.mu.Lock()
	e.touchLocked()
	e.totalsChangedLocked()
	e.mu.Unlock()
}

// --- customer ---

// CustomerPatch carries the customer fields a client changed.
type CustomerPatch struct {
	Name         *string
	Phone        *string
	CEP          *string
	Street       *string
	Neighborhood *string
	Notes        *string
	Pickup       *bool
	Kind         *enums.CustomerKind
	ChangeFor    *decimal.Decimal
}

// UpdateCustomer applies patch, persists the draft and refreshes the quote.
func (e *Engine) UpdateCustomer(ctx context.Context, patch CustomerPatch) error {
	if patch.Kind != nil && !patch.Kind.IsValid() {
		return errors.New(errors.CodeValidation, "invalid customer kind")
	}
	if patch.ChangeFor != nil && patch.ChangeFor.IsNegative() {
		return errors.New(errors.CodeValidation, "change must be non-negative")
	}

	e.mu.Lock()
	e.touchLocked()
	c := &e.draft.Contact
	setString(&c.Name, patch.Name)
	setString(&c.Phone, patch.Phone)
	setString(&c.CEP, patch.CEP)
	setString(&c.Street, patch.Street)
	setString(&c.Neighborhood, patch.Neighborhood)
	setString(&c.Notes, patch.Notes)
	if patch.Pickup != nil {
		c.Pickup = *patch.Pickup
	}
	if patch.Kind != nil {
		e.draft.CustomerKind = *patch.Kind
	}
	if patch.ChangeFor != nil {
		change := *patch.ChangeFor
		e.draft.ChangeFor = &change
	}
	if patch.Phone != nil && customers.Digits(*patch.Phone) == "" {
		e.phones.ShouldLookup("")
		e.notice = ""
	}
	dest, schedule := e.syncQuoteLocked()
	e.totalsChangedLocked()
	snap := e.draft
	e.mu.Unlock()

	e.applyQuotePlan(dest, schedule)
	return e.persist(ctx, snap)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// LookupResult reports the outcome of a phone lookup.
type LookupResult struct {
	Skipped  bool                `json:"skipped"`
	Found    bool                `json:"found"`
	Customer *customers.Customer `json:"customer,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// LookupCustomer searches the backend for the draft's phone. The same number
// is only looked up once; a failed lookup may be retried.
func (e *Engine) LookupCustomer(ctx context.Context) (LookupResult, error) {
	e.mu.Lock()
	e.touchLocked()
	phone := e.draft.Contact.Phone
	e.mu.Unlock()

	if !e.phones.ShouldLookup(phone) {
		return LookupResult{Skipped: true}, nil
	}

	found, err := e.svc.Customers.FindByPhone(ctx, phone)
	if err != nil {
		e.phones.Forget()
		e.mu.Lock()
		e.notice = customers.MessageLookupFailed
		e.mu.Unlock()
		e.logg.Warn(e.logg.WithField(e.ctx(ctx), "error", err.Error()), "checkout.customer_lookup.failed")
		return LookupResult{Message: customers.MessageLookupFailed}, err
	}

	e.mu.Lock()
	if found == nil {
		e.draft.Contact.CustomerID = ""
		e.notice = customers.MessageNotFound
		snap := e.draft
		e.mu.Unlock()
		return LookupResult{Message: customers.MessageNotFound}, e.persist(ctx, snap)
	}

	c := &e.draft.Contact
	if id := found.ID.String(); id != "" {
		c.CustomerID = id
	}
	c.Name = firstNonEmpty(found.Name, c.Name)
	c.CEP = firstNonEmpty(found.Address.CEP, c.CEP)
	c.Street = firstNonEmpty(found.Address.Street, c.Street)
	c.Neighborhood = firstNonEmpty(found.Address.Neighborhood, c.Neighborhood)
	e.draft.CustomerKind = enums.CustomerKindExisting
	e.notice = ""
	dest, schedule := e.syncQuoteLocked()
	e.totalsChangedLocked()
	snap := e.draft
	e.mu.Unlock()

	e.applyQuotePlan(dest, schedule)
	return LookupResult{Found: true, Customer: found}, e.persist(ctx, snap)
}

// LookupCEP fills the street and neighborhood from the draft's CEP.
func (e *Engine) LookupCEP(ctx context.Context) (address.Address, error) {
	if e.svc.Addresses == nil {
		return address.Address{}, errors.New(errors.CodeDependency, "Erro ao buscar CEP. Tente novamente.")
	}
	e.mu.Lock()
	e.touchLocked()
	req := address.LookupRequest{CEP: e.draft.Contact.CEP, CurrentNeighborhood: e.draft.Contact.Neighborhood}
	e.mu.Unlock()

	addr, err := e.svc.Addresses.Lookup(ctx, req)
	if err != nil {
		return address.Address{}, err
	}

	e.mu.Lock()
	e.draft.Contact.Street = addr.Street
	e.draft.Contact.Neighborhood = addr.Neighborhood
	dest, schedule := e.syncQuoteLocked()
	e.totalsChangedLocked()
	snap := e.draft
	e.mu.Unlock()

	e.applyQuotePlan(dest, schedule)
	return addr, e.persist(ctx, snap)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// --- coupon & payment method ---

// ApplyCoupon sets the coupon. Unknown codes keep the code but zero the discount.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	discount, ok := e.svc.Coupons.Discount(code)

	e.mu.Lock()
	e.touchLocked()
	e.draft.Coupon = NormalizeCoupon(code)
	e.draft.Discount = discount
	e.totalsChangedLocked()
	snap := e.draft
	e.mu.Unlock()

	return discount, ok, e.persist(ctx, snap)
}

func (e *Engine) SetPaymentMethod(ctx context.Context, method enums.PaymentMethod) error {
	if !method.IsValid() {
		return errors.New(errors.CodeValidation, "invalid payment method")
	}

	e.mu.Lock()
	e.touchLocked()
	e.draft.PaymentMethod = method
	snap := e.draft
	e.mu.Unlock()

	e.pix.OnPaymentMethodChanged(method)
	if method != enums.PaymentMethodCard {
		e.card.Reset()
	}
	return e.persist(ctx, snap)
}

// --- payments ---

func (e *Engine) payerLocked() payments.Payer {
	c := e.draft.Contact
	return payments.Payer{ID: c.CustomerID, Name: strings.TrimSpace(c.Name), Phone: customers.Digits(c.Phone)}
}

// CreatePix returns the live PIX charge or creates one for the current total.
func (e *Engine) CreatePix(ctx context.Context, force bool) (*payments.PixSession, error) {
	e.mu.Lock()
	e.touchLocked()
	if e.draft.PaymentMethod != enums.PaymentMethodPix {
		e.mu.Unlock()
		return nil, errors.New(errors.CodeStateConflict, "payment method is not pix")
	}
	if e.cart.Empty() {
		e.mu.Unlock()
		return nil, errors.New(errors.CodeValidation, MessageEmptyCart)
	}
	req := payments.PixRequest{
		Force:      force,
		Total:      e.totalsLocked().Total,
		Payer:      e.payerLocked(),
		ItemsCount: e.cart.ItemCount(),
	}
	e.mu.Unlock()

	return e.pix.CreateOrRefresh(e.ctx(ctx), req)
}

// PixSession returns the live session, or nil.
func (e *Engine) PixSession() *payments.PixSession {
	return e.pix.Session()
}

// pendingCardOrder is the pending_card_order layout, read back when the
// customer returns from the card checkout page.
type pendingCardOrder struct {
	CreatedAt     int64                  `json:"createdAt"`
	Items         []cart.Item            `json:"items"`
	Contact       orders.Contact         `json:"dados"`
	Subtotal      decimal.Decimal        `json:"subtotal"`
	DeliveryFee   decimal.Decimal        `json:"taxaEntrega"`
	Discount      decimal.Decimal        `json:"desconto"`
	Total         decimal.Decimal        `json:"totalFinal"`
	PaymentMethod enums.PaymentMethod    `json:"pagamento"`
	CardPayment   *payments.CardCheckout `json:"cardPayment"`
}

// StartCardPayment creates (or reuses) the card checkout link and records the
// pending order before the link is handed out.
func (e *Engine) StartCardPayment(ctx context.Context) (*payments.CardCheckout, error) {
	e.mu.Lock()
	e.touchLocked()
	if e.draft.PaymentMethod != enums.PaymentMethodCard {
		e.mu.Unlock()
		return nil, errors.New(errors.CodeStateConflict, "payment method is not card")
	}
	if !e.canSubmitLocked() {
		e.mu.Unlock()
		return nil, errors.New(errors.CodeValidation, MessageIncomplete)
	}
	totals := e.totalsLocked()
	req := payments.CardRequest{Total: totals.Total, Payer: e.payerLocked(), ItemsCount: e.cart.ItemCount()}
	contact := e.draft.Contact
	e.mu.Unlock()

	checkout, err := e.card.Create(e.ctx(ctx), req)
	if err != nil {
		return nil, err
	}

	pending := pendingCardOrder{
		CreatedAt:     e.svc.Now().UnixMilli(),
		Items:         e.cart.Items(),
		Contact:       contact,
		Subtotal:      totals.Subtotal,
		DeliveryFee:   totals.DeliveryFee,
		Discount:      totals.Discount,
		Total:         totals.Total,
		PaymentMethod: enums.PaymentMethodCard,
		CardPayment:   checkout,
	}
	if err := storage.SetJSON(ctx, e.store, storage.KeyPendingCardOrder, pending); err != nil {
		e.logg.Warn(e.logg.WithField(e.ctx(ctx), "error", err.Error()), "checkout.pending_card_order.persist_failed")
	}
	return checkout, nil
}

// --- snapshot ---

// Snapshot is everything a client needs to render the checkout.
type Snapshot struct {
	SessionID     string                 `json:"sessionId"`
	Step          int                    `json:"step"`
	StepName      string                 `json:"stepName"`
	Draft         Draft                  `json:"draft"`
	Items         []cart.Item            `json:"items"`
	ItemCount     int                    `json:"itemCount"`
	Quote         delivery.Quote         `json:"quote"`
	Totals        Totals                 `json:"totals"`
	Checklist     []string               `json:"checklist"`
	CanAdvance    bool                   `json:"canAdvance"`
	CanSubmit     bool                   `json:"canSubmit"`
	Submitting    bool                   `json:"submitting"`
	Notice        string                 `json:"notice,omitempty"`
	Pix           *payments.PixSession   `json:"pix,omitempty"`
	PixAffordance enums.PixAffordance    `json:"pixAffordance"`
	PixRemaining  string                 `json:"pixRemaining,omitempty"`
	PixError      string                 `json:"pixError,omitempty"`
	Card          *payments.CardCheckout `json:"card,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	now := e.svc.Now()

	e.mu.Lock()
	e.touchLocked()
	s := Snapshot{
		SessionID:  e.sessionID,
		Step:       e.draft.Step,
		StepName:   StepName(e.draft.Step),
		Draft:      e.draft,
		Items:      e.cart.Items(),
		ItemCount:  e.cart.ItemCount(),
		Quote:      e.quote,
		Totals:     e.totalsLocked(),
		Checklist:  []string{},
		CanSubmit:  e.canSubmitLocked(),
		Submitting: e.submitting,
		Notice:     e.notice,
	}
	if e.draft.Step == StepCustomer {
		s.Checklist = Checklist(e.draft, e.quote, e.resolver.Enabled())
	}
	s.CanAdvance = e.draft.Step < StepPayment && e.guardAdvanceLocked() == nil
	e.mu.Unlock()

	s.Pix = e.pix.Session()
	s.PixAffordance = e.pix.Affordance(now)
	s.PixError = e.pix.LastError()
	if remaining, ok := e.pix.Remaining(now); ok {
		s.PixRemaining = payments.FormatRemaining(remaining)
	}
	s.Card = e.card.Checkout()
	return s
}
