package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	maxClientIDLen  = 128
)

// RequestID propagates the caller's request id, or issues one, and tags the
// request log context with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := clientID(r.Header.Get(requestIDHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientID returns a trimmed client-supplied id, or "" when it is unusable
// as a log field or storage key.
func clientID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxClientIDLen || strings.ContainsAny(id, ": /\\\t\r\n") {
		return ""
	}
	return id
}
