package controllers

import (
	"context"
	"net/http"

	"github.com/annetom/pizzaria-checkout/api/middleware"
	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/internal/checkout"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

// Sessions resolves the checkout engine of a session.
type Sessions interface {
	Engine(ctx context.Context, sessionID string) (*checkout.Engine, error)
}

// sessionEngine loads the engine bound to the request's session header. It
// writes the error response itself and reports false when there is none.
func sessionEngine(w http.ResponseWriter, r *http.Request, sessions Sessions, logg *logger.Logger) (*checkout.Engine, bool) {
	if sessions == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout sessions unavailable"))
		return nil, false
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing"))
		return nil, false
	}
	engine, err := sessions.Engine(r.Context(), sessionID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return engine, true
}
