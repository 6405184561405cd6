package controllers

import (
	"context"
	"net/http"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/pkg/config"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

const envHeader = "X-AnneTom-Env"

// Pinger is anything the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the session storage answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		checks := map[string]string{"storage": "ok"}
		if storage != nil {
			if err := storage.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unavailable").
					WithDetails(map[string]any{"storage": "down"}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
