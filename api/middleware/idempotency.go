package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/annetom/pizzaria-checkout/api/responses"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	paymentReplayTTL = 10 * time.Minute
	orderReplayTTL   = 24 * time.Hour
)

// replayPolicy lists the routes whose responses are kept for replay, keyed
// by "METHOD pattern". Patterns follow chi and fall back to path.Match on
// the raw URL when no route context is present.
var replayPolicy = map[string]time.Duration{
	"POST /api/checkout/pix":                      paymentReplayTTL,
	"POST /api/checkout/card":                     paymentReplayTTL,
	"POST /api/checkout/submit":                   orderReplayTTL,
	"POST /api/orders/{orderId}/confirm-delivery": orderReplayTTL,
}

type replayRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency replays the settled response of a retried request carrying
// the same Idempotency-Key within one checkout session. Requests without
// the header pass through; the checkout engine guards double submits itself.
func Idempotency(backend storage.Backend, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, listed := replayTTL(r)
			rawKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if !listed || backend == nil || rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			idemKey := clientID(rawKey)
			if idemKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid Idempotency-Key header"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			store := storage.Scope(backend, storage.SharedNamespace, ttl)
			key := replayKey(SessionIDFromContext(ctx), r.Method, r.URL.Path, idemKey)
			fingerprint := digest(body)

			var record replayRecord
			found, err := storage.GetJSON(ctx, store, key, &record)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replay record"))
				return
			}
			if found {
				if record.Fingerprint != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request body"))
					return
				}
				replay(w, record)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// 5xx outcomes stay retryable.
			if capture.Status() >= http.StatusInternalServerError {
				return
			}
			record = replayRecord{
				Status:      capture.Status(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
			}
			if err := storage.SetJSON(ctx, store, key, record); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayTTL(r *http.Request) (time.Duration, bool) {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			ttl, ok := replayPolicy[r.Method+" "+pattern]
			return ttl, ok
		}
	}
	for route, ttl := range replayPolicy {
		method, pattern, _ := strings.Cut(route, " ")
		if method != r.Method {
			continue
		}
		if ok, _ := path.Match(chiToGlob(pattern), r.URL.Path); ok {
			return ttl, true
		}
	}
	return 0, false
}

// chiToGlob turns "/a/{id}/b" into "/a/*/b".
func chiToGlob(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			parts[i] = "*"
		}
	}
	return strings.Join(parts, "/")
}

func replayKey(sessionID, method, urlPath, idemKey string) string {
	return "http_replay:" + digest([]byte(sessionID+"\x00"+method+"\x00"+urlPath+"\x00"+idemKey))
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, record replayRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) Status() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
