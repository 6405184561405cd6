package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/api/validators"
	"github.com/annetom/pizzaria-checkout/internal/menu"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

const maxNoteLength = 280

type addItemRequest struct {
	ProductID string   `json:"productId" validate:"required,max=64"`
	Size      string   `json:"size" validate:"required,oneof=broto grande"`
	FlavorIDs []string `json:"flavorIds" validate:"omitempty,max=2,dive,required"`
	Border    string   `json:"border" validate:"max=64"`
	Extras    []string `json:"extras" validate:"omitempty,max=10,dive,required"`
	Quantity  int      `json:"quantity" validate:"omitempty,min=1,max=50"`
	Note      string   `json:"note"`
}

func (p addItemRequest) selection() menu.Selection {
	return menu.Selection{
		ProductID: p.ProductID,
		Size:      enums.PizzaSize(p.Size),
		FlavorIDs: p.FlavorIDs,
		Border:    p.Border,
		Extras:    p.Extras,
	}
}

// CartAddItem prices the selection against the menu and adds it to the cart.
func CartAddItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		item, err := engine.AddItem(r.Context(), payload.selection(), payload.Quantity, validators.SanitizeString(payload.Note, maxNoteLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"item":     item,
			"checkout": engine.Snapshot(),
		})
	}
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=50"`
}

// CartUpdateItem sets a line's quantity; zero removes it.
func CartUpdateItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := sizeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if err := engine.UpdateItem(r.Context(), chi.URLParam(r, "itemId"), size, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

func CartRemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := sizeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if err := engine.RemoveItem(r.Context(), chi.URLParam(r, "itemId"), size); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

func CartClear(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		if err := engine.ClearCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

func sizeParam(r *http.Request) (enums.PizzaSize, error) {
	size, err := enums.ParsePizzaSize(chi.URLParam(r, "size"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pizza size")
	}
	return size, nil
}
