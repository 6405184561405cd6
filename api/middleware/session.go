package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

// SessionHeader carries the checkout session id in both directions.
const SessionHeader = "X-Checkout-Session"

// CheckoutSession binds the request to a checkout session, issuing a new id
// when the client sent none. The id is echoed back on every response.
func CheckoutSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := clientID(r.Header.Get(SessionHeader))
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			w.Header().Set(SessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
