package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/annetom/pizzaria-checkout/api/responses"
	"github.com/annetom/pizzaria-checkout/api/validators"
	"github.com/annetom/pizzaria-checkout/internal/checkout"
	"github.com/annetom/pizzaria-checkout/internal/payments"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
)

var countdownTick = time.Second

// PixCreate returns the live PIX charge, creating one when needed. force=true
// regenerates it.
func PixCreate(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force, err := validators.ParseQueryBool(r, "force")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		session, err := engine.CreatePix(r.Context(), force)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"pix":      session,
			"checkout": engine.Snapshot(),
		})
	}
}

// PixQRCode renders the live PIX charge as a PNG.
func PixQRCode(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		png, err := payments.QRCodePNG(engine.PixSession())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

type countdownEvent struct {
	Remaining string `json:"remaining"`
	Seconds   int64  `json:"seconds"`
}

// PixCountdown streams the time left on the PIX charge as server-sent events,
// once per second. It ends with an "expired" event, or an "invalidated" event
// once the charge is replaced or dropped (for example after a total change).
func PixCountdown(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		session := engine.PixSession()
		if session == nil || session.ExpiresAt == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no pix charge with an expiry"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		streamCountdown(r.Context(), w, flusher, session, engine.PixSession)
	}
}

func streamCountdown(ctx context.Context, w io.Writer, flusher http.Flusher, session *payments.PixSession, current func() *payments.PixSession) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for left := range payments.Countdown(ctx, session, countdownTick) {
		if !session.SameCharge(current()) {
			fmt.Fprint(w, "event: invalidated\ndata: {}\n\n")
			flusher.Flush()
			return
		}
		data, _ := json.Marshal(countdownEvent{
			Remaining: payments.FormatRemaining(left),
			Seconds:   int64(left.Round(time.Second) / time.Second),
		})
		event := "countdown"
		if left == 0 {
			event = "expired"
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}
}

// CardStart creates the card checkout link and records the pending order.
func CardStart(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		link, err := engine.StartCardPayment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"card":     link,
			"checkout": engine.Snapshot(),
		})
	}
}

// CheckoutSubmit sends the order. Failures keep the cart and map to an error
// envelope carrying the customer-facing message.
func CheckoutSubmit(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionEngine(w, r, sessions, logg)
		if !ok {
			return
		}
		result := engine.SubmitOrder(r.Context())
		if !result.Success {
			responses.WriteError(r.Context(), logg, w, submissionError(result))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func submissionError(result checkout.SubmissionResult) *pkgerrors.Error {
	code := result.Code
	if code == "" {
		code = pkgerrors.CodeStateConflict
		if result.Retryable {
			code = pkgerrors.CodeDependency
		}
	}
	return pkgerrors.New(code, result.Error).WithDetails(map[string]any{"retryable": result.Retryable})
}
