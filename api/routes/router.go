package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/annetom/pizzaria-checkout/api/controllers"
	"github.com/annetom/pizzaria-checkout/api/middleware"
	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
)

// Dependencies are the services the HTTP surface is wired to.
type Dependencies struct {
	Sessions controllers.Sessions
	Catalog  controllers.CatalogSource
	Settings controllers.SettingsSource
	Orders   controllers.OrderTracker
	// Storage backs readiness checks and idempotent replays.
	Storage storage.Backend
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Storage))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	replay := middleware.Idempotency(deps.Storage, logg)

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", controllers.Menu(deps.Catalog, logg))
		r.Get("/store/settings", controllers.StoreSettings(deps.Settings, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CheckoutSession(logg))

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutSnapshot(deps.Sessions, logg))
				r.Post("/advance", controllers.CheckoutAdvance(deps.Sessions, logg))
				r.Post("/back", controllers.CheckoutBack(deps.Sessions, logg))
				r.Post("/steps/{step}", controllers.CheckoutGoTo(deps.Sessions, logg))

				r.Route("/cart", func(r chi.Router) {
					r.Delete("/", controllers.CartClear(deps.Sessions, logg))
					r.Post("/items", controllers.CartAddItem(deps.Sessions, logg))
					r.Patch("/items/{itemId}/{size}", controllers.CartUpdateItem(deps.Sessions, logg))
					r.Delete("/items/{itemId}/{size}", controllers.CartRemoveItem(deps.Sessions, logg))
				})

				r.Patch("/customer", controllers.CustomerUpdate(deps.Sessions, logg))
				r.Post("/customer/lookup", controllers.CustomerLookup(deps.Sessions, logg))
				r.Post("/cep", controllers.CEPLookup(deps.Sessions, logg))
				r.Post("/coupon", controllers.CheckoutCoupon(deps.Sessions, logg))
				r.Put("/payment-method", controllers.CheckoutPaymentMethod(deps.Sessions, logg))

				r.With(replay).Post("/pix", controllers.PixCreate(deps.Sessions, logg))
				r.Get("/pix/qrcode.png", controllers.PixQRCode(deps.Sessions, logg))
				r.Get("/pix/countdown", controllers.PixCountdown(deps.Sessions, logg))
				r.With(replay).Post("/card", controllers.CardStart(deps.Sessions, logg))
				r.With(replay).Post("/submit", controllers.CheckoutSubmit(deps.Sessions, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(deps.Orders, deps.Sessions, logg))
				r.Get("/last", controllers.OrdersLast(deps.Sessions, logg))
				r.With(replay).Post("/{orderId}/confirm-delivery", controllers.OrderConfirmDelivery(deps.Orders, logg))
				r.Get("/{orderId}/courier", controllers.OrderCourier(deps.Orders, logg))
			})
		})
	})

	return r
}
