package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
	"github.com/shopspring/decimal"
)

const (
	MessageSubmitFailed  = "Falha ao enviar o pedido. Tente novamente."
	MessageListFailed    = "Não foi possível carregar seus pedidos."
	MessageConfirmFailed = "Não foi possível confirmar a entrega."
	MessageCourierFailed = "Não foi possível consultar o entregador."

	// One loyalty point per this many reais spent.
	pointsDivisor = 40
	NextRewardAt  = 10
)

type Backend interface {
	CreateOrder(ctx context.Context, payload any) (*storeapi.Response, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) (*storeapi.Response, error)
	ListOrders(ctx context.Context, customerID string) (*storeapi.Response, error)
	CourierStatus(ctx context.Context, orderID string) (*storeapi.Response, error)
}

// Listing splits a customer's orders for the tracking page.
type Listing struct {
	Active       []Order         `json:"active"`
	Past         []Order         `json:"past"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	Points       int64           `json:"points"`
	NextRewardAt int             `json:"nextRewardAt"`
}

// Summarize splits orders into active and past and computes loyalty points.
func Summarize(list []Order) Listing {
	out := Listing{Active: []Order{}, Past: []Order{}, NextRewardAt: NextRewardAt}
	for _, o := range list {
		if o.Active() {
			out.Active = append(out.Active, o)
		} else {
			out.Past = append(out.Past, o)
		}
		out.TotalSpent = out.TotalSpent.Add(o.Total)
	}
	out.Points = out.TotalSpent.Div(decimal.NewFromInt(pointsDivisor)).Floor().IntPart()
	return out
}

type Service struct {
	backend Backend
	logg    *logger.Logger
}

func NewService(backend Backend, logg *logger.Logger) (*Service, error) {
	if backend == nil {
		return nil, errors.New(errors.CodeInternal, "order backend is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{backend: backend, logg: logg}, nil
}

// Create submits req. The order only counts as created on a 2xx reply whose
// body does not say success:false.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	resp, err := s.backend.CreateOrder(ctx, req)
	if err != nil {
		return Order{}, errors.Wrap(errors.CodeDependency, err, MessageSubmitFailed)
	}
	if resp.Failed() {
		msg := resp.Message()
		if msg == "" {
			msg = MessageSubmitFailed
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"status": resp.Status, "body": resp.Text()}), "orders.create.rejected")
		return Order{}, errors.FromUpstream(resp.Status, msg)
	}

	order, err := ParseCreated(resp.Data)
	if err != nil {
		// The backend accepted the order; an unreadable body must not turn
		// that into a failure.
		s.logg.Warn(s.logg.WithField(ctx, "body", resp.Text()), "orders.create.unreadable_reply")
		return Order{Status: enums.OrderStatusOpen, StatusLabel: StatusLabel(enums.OrderStatusOpen), Raw: resp.Data}, nil
	}
	return order, nil
}

// ListForCustomer returns the orders of customerID split for display.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) (Listing, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Listing{}, errors.New(errors.CodeValidation, "customerId is required")
	}
	resp, err := s.backend.ListOrders(ctx, customerID)
	if err != nil {
		return Listing{}, errors.Wrap(errors.CodeDependency, err, MessageListFailed)
	}
	if resp.Status == http.StatusNotFound {
		return Summarize(nil), nil
	}
	if resp.Failed() {
		s.logg.Warn(s.logg.WithField(ctx, "status", resp.Status), "orders.list.failed")
		return Listing{}, errors.New(errors.CodeDependency, MessageListFailed)
	}
	list, err := ParseList(resp.Data)
	if err != nil {
		return Listing{}, errors.Wrap(errors.CodeDependency, err, MessageListFailed)
	}
	return Summarize(list), nil
}

// ConfirmDelivery marks orderID as delivered on the customer's word.
func (s *Service) ConfirmDelivery(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	resp, err := s.backend.UpdateOrderStatus(ctx, orderID, BackendStatusDone)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, MessageConfirmFailed)
	}
	if resp.Status == http.StatusNotFound {
		return errors.New(errors.CodeNotFound, "order not found")
	}
	if resp.Failed() {
		s.logg.Warn(s.logg.WithOrderID(s.logg.WithField(ctx, "status", resp.Status), orderID), "orders.confirm.failed")
		return errors.New(errors.CodeDependency, MessageConfirmFailed)
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "orders.delivery_confirmed")
	return nil
}

// Courier returns the backend's courier tracking document for orderID as is.
func (s *Service) Courier(ctx context.Context, orderID string) (json.RawMessage, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	resp, err := s.backend.CourierStatus(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, MessageCourierFailed)
	}
	if resp.Status == http.StatusNotFound {
		return nil, errors.New(errors.CodeNotFound, "courier status not found")
	}
	if resp.Failed() {
		return nil, errors.New(errors.CodeDependency, MessageCourierFailed)
	}
	return resp.Data, nil
}
