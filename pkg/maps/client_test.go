package maps

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
)

func TestClientDistanceMatrixRequest(t *testing.T) {
	respBody := `{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"text":"2,5 km","value":2512},"duration":{"text":"9 minutos","value":540}}]}]}`

	var captured *http.Request
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client, err := NewClient("test-key", WithBaseURL("http://maps.test/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.DistanceMatrix(context.Background(), "Pizzaria Anne & Tom", "Rua Voluntarios da Patria, 100, Santana")
	if err != nil {
		t.Fatalf("distance matrix: %v", err)
	}

	if captured.URL.Path != "/maps/api/distancematrix/json" {
		t.Fatalf("unexpected path %q", captured.URL.Path)
	}
	query := captured.URL.Query()
	if query.Get("key") != "test-key" {
		t.Fatalf("api key missing")
	}
	if query.Get("origins") != "Pizzaria Anne & Tom" {
		t.Fatalf("origin not escaped properly: %q", query.Get("origins"))
	}
	if query.Get("units") != "metric" || query.Get("language") != "pt-BR" {
		t.Fatalf("unexpected query %v", query)
	}
	if result.DistanceText != "2,5 km" || result.DistanceMeters != 2512 || result.DurationText != "9 minutos" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestClientDistanceMatrixFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusBadGateway, body: "upstream"},
		{name: "top-level status", status: http.StatusOK, body: `{"status":"REQUEST_DENIED","error_message":"bad key"}`},
		{name: "element not found", status: http.StatusOK, body: `{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`},
		{name: "no rows", status: http.StatusOK, body: `{"status":"OK","rows":[]}`},
		{name: "bad json", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})
			client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			_, err = client.DistanceMatrix(context.Background(), "a", "b")
			if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				t.Fatalf("expected dependency error, got %v", err)
			}
		})
	}
}

func TestClientValidation(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected missing api key error")
	}

	client, err := NewClient("k")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.DistanceMatrix(context.Background(), "origin", " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var nilClient *Client
	if _, err := nilClient.DistanceMatrix(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected nil client to fail")
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
