package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/api/validators"
	"github.com/annetom/pizzaria-checkout/internal/checkout"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

// CheckoutSnapshot returns everything needed to render the session's checkout.
func CheckoutSnapshot(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

// CheckoutAdvance moves to the next step. A failed guard answers 400 with
// the missing items in the error details.
func CheckoutAdvance(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if _, err := engine.Advance(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

func CheckoutBack(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if _, err := engine.Back(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

// CheckoutGoTo jumps to the step in the URL, as the step indicator does.
func CheckoutGoTo(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		step, err := strconv.Atoi(chi.URLParam(r, "step"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, checkout.MessageInvalidStep))
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if _, err := engine.GoTo(r.Context(), step); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

type couponRequest struct {
	Code string `json:"code" validate:"max=40"`
}

// CheckoutCoupon applies a coupon. Unknown codes are accepted with no discount.
func CheckoutCoupon(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload couponRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		discount, valid, err := engine.ApplyCoupon(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"valid":    valid,
			"discount": discount,
			"checkout": engine.Snapshot(),
		})
	}
}

type paymentMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

func CheckoutPaymentMethod(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentMethodRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, valid := checkout.ParsePaymentMethod(payload.Method)
		if !valid {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
				WithDetails(map[string]any{"method": payload.Method}))
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if err := engine.SetPaymentMethod(r.Context(), method); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}
