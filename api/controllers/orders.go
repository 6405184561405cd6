package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/internal/orders"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

type OrderTracker interface {
	ListForCustomer(ctx context.Context, customerID string) (orders.Listing, error)
	ConfirmDelivery(ctx context.Context, orderID string) error
	Courier(ctx context.Context, orderID string) (json.RawMessage, error)
}

// OrdersList lists a customer's orders. Without ?customerId the session's
// known customer is used.
func OrdersList(tracker OrderTracker, sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))
		if customerID == "" {
			engine, ok := sessionEngine(w, r, sessions, logg)
			if !ok {
				return
			}
			customerID = engine.Snapshot().Draft.Contact.CustomerID
		}
		listing, err := tracker.ListForCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// OrdersLast returns the confirmation of the session's last order.
func OrdersLast(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		summary, err := engine.LastSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if summary == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Nenhum pedido recente."))
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func OrderConfirmDelivery(tracker OrderTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		if err := tracker.ConfirmDelivery(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orderId": orderID, "status": orders.BackendStatusDone})
	}
}

func OrderCourier(tracker OrderTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := tracker.Courier(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}
