package controllers

import (
	"context"
	"net/http"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/internal/menu"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
)

type CatalogSource interface {
	Catalog(ctx context.Context) (*menu.Catalog, error)
}

type SettingsSource interface {
	StoreSettings(ctx context.Context) (*storeapi.Response, error)
}

// Menu returns the normalized catalog used to price the cart.
func Menu(catalogs CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalogs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu unavailable"))
			return
		}
		catalog, err := catalogs.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog)
	}
}

// StoreSettings relays the store's settings (opening hours and the like).
func StoreSettings(settings SettingsSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store settings unavailable"))
			return
		}
		resp, err := settings.StoreSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Não foi possível carregar os dados da loja."))
			return
		}
		if resp.Failed() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "Não foi possível carregar os dados da loja.").
				WithDetails(map[string]any{"status": resp.Status}))
			return
		}
		responses.WriteSuccess(w, resp.Data)
	}
}
