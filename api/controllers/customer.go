package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/api/validators"
	"github.com/annetom/pizzaria-checkout/internal/checkout"
	"github.com/annetom/pizzaria-checkout/internal/customers"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

type customerPatchRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=120"`
	Phone        *string          `json:"phone" validate:"omitempty,max=32"`
	CEP          *string          `json:"cep" validate:"omitempty,max=16"`
	Street       *string          `json:"street" validate:"omitempty,max=200"`
	Neighborhood *string          `json:"neighborhood" validate:"omitempty,max=120"`
	Notes        *string          `json:"notes" validate:"omitempty,max=500"`
	Pickup       *bool            `json:"pickup"`
	Kind         *string          `json:"kind" validate:"omitempty,oneof=auto existing new"`
	ChangeFor    *decimal.Decimal `json:"changeFor"`
}

func (p customerPatchRequest) toPatch() checkout.CustomerPatch {
	patch := checkout.CustomerPatch{
		Name:         validators.SanitizeOptional(p.Name, 120),
		Phone:        validators.SanitizeOptional(p.Phone, 32),
		CEP:          validators.SanitizeOptional(p.CEP, 16),
		Street:       validators.SanitizeOptional(p.Street, 200),
		Neighborhood: validators.SanitizeOptional(p.Neighborhood, 120),
		Notes:        validators.SanitizeOptional(p.Notes, 500),
		Pickup:       p.Pickup,
		ChangeFor:    p.ChangeFor,
	}
	if p.Kind != nil {
		kind := enums.CustomerKind(*p.Kind)
		patch.Kind = &kind
	}
	return patch
}

// CustomerUpdate applies the changed customer fields. A new phone number
// triggers the backend lookup; its outcome is reported, never fatal.
func CustomerUpdate(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload customerPatchRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		patch := payload.toPatch()
		if err := engine.UpdateCustomer(r.Context(), patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := map[string]any{}
		if patch.Phone != nil && len(customers.Digits(*patch.Phone)) >= customers.MinPhoneDigits {
			lookup, err := engine.LookupCustomer(r.Context())
			if err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "customer.lookup.failed")
			}
			out["lookup"] = lookup
		}
		out["checkout"] = engine.Snapshot()
		responses.WriteSuccess(w, out)
	}
}

// CustomerLookup searches the backend for the draft's phone number.
func CustomerLookup(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		lookup, err := engine.LookupCustomer(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"lookup":   lookup,
			"checkout": engine.Snapshot(),
		})
	}
}

type cepRequest struct {
	CEP *string `json:"cep" validate:"omitempty,max=16"`
}

// CEPLookup fills street and neighborhood from the CEP, optionally setting it first.
func CEPLookup(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cepRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if payload.CEP != nil {
			if err := engine.UpdateCustomer(r.Context(), checkout.CustomerPatch{CEP: validators.SanitizeOptional(payload.CEP, 16)}); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		addr, err := engine.LookupCEP(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"address":  addr,
			"checkout": engine.Snapshot(),
		})
	}
}
