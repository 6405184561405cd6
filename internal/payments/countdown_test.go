package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"

	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
)

func TestCountdownEndsAtZero(t *testing.T) {
	expires := time.Now().Add(60 * time.Millisecond)
	session := &PixSession{CopiaColar: "pix", ExpiresAt: &expires}

	var last time.Duration = -1
	ticks := 0
	for left := range Countdown(context.Background(), session, 10*time.Millisecond) {
		last = left
		ticks++
	}
	if last != 0 {
		t.Fatalf("expected final tick to be zero, got %v", last)
	}
	if ticks < 2 {
		t.Fatalf("expected several ticks, got %d", ticks)
	}
}

func TestCountdownStopsOnCancel(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	session := &PixSession{CopiaColar: "pix", ExpiresAt: &expires}
	ctx, cancel := context.WithCancel(context.Background())

	ch := Countdown(ctx, session, 5*time.Millisecond)
	<-ch
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("countdown did not stop after cancel")
		}
	}
}

func TestCountdownWithoutExpiryCloses(t *testing.T) {
	if _, ok := <-Countdown(context.Background(), &PixSession{CopiaColar: "pix"}, time.Second); ok {
		t.Fatal("expected closed channel")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := map[time.Duration]string{
		0:                               "00:00",
		-time.Second:                    "00:00",
		90 * time.Second:                "01:30",
		14*time.Minute + 59*time.Second: "14:59",
	}
	for in, want := range cases {
		if got := FormatRemaining(in); got != want {
			t.Fatalf("FormatRemaining(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestQRCodePNG(t *testing.T) {
	png, err := QRCodePNG(&PixSession{CopiaColar: "00020126580014br.gov.bcb.pix"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("expected PNG output")
	}

	provided := []byte("\x89PNG-provider")
	session := &PixSession{QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(provided)}
	got, err := QRCodePNG(session)
	if err != nil {
		t.Fatalf("data url: %v", err)
	}
	if !bytes.Equal(got, provided) {
		t.Fatal("expected provider image to be returned as is")
	}

	if _, err := QRCodePNG(&PixSession{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
