package menu

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
)

const menuJSON = `{
  "pizzas": [
    {"id": "calabresa", "nome": "Calabresa", "preco_grande": 49.9, "preco_broto": "32,00"},
    {"id": "marguerita", "name": "Marguerita", "priceGrande": 54.5, "priceBroto": 35},
    {"id": "camarao", "nome": "Camarão", "preco": "79.90"},
    {"nome": "sem id", "preco": 10}
  ],
  "bordas": [{"id": "catupiry", "nome": "Catupiry", "preco": 8}],
  "extras": [{"id": "bacon", "nome": "Bacon", "price": "4.50"}, {"id": "ovo", "nome": "Ovo", "preco": 2}],
  "horarioAbertura": "18:00"
}`

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := ParseCatalog([]byte(menuJSON))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func TestParseCatalogNormalizesPriceKeys(t *testing.T) {
	cat := mustCatalog(t)
	if len(cat.Pizzas) != 3 {
		t.Fatalf("expected 3 pizzas, got %d", len(cat.Pizzas))
	}
	calabresa, _ := cat.Product("calabresa")
	if calabresa.PriceGrande.String() != "49.9" || calabresa.PriceBroto.String() != "32" {
		t.Fatalf("unexpected calabresa prices %+v", calabresa)
	}
	marguerita, _ := cat.Product("marguerita")
	if marguerita.Name != "Marguerita" || marguerita.PriceGrande.String() != "54.5" {
		t.Fatalf("unexpected marguerita %+v", marguerita)
	}
	camarao, _ := cat.Product("camarao")
	if camarao.PriceBroto != nil {
		t.Fatal("camarao should not offer broto")
	}
	if cat.OpeningHours != "18:00" {
		t.Fatalf("unexpected opening hours %q", cat.OpeningHours)
	}
}

func TestParseCatalogAcceptsBareArray(t *testing.T) {
	cat, err := ParseCatalog([]byte(`[{"id": 7, "nome": "Portuguesa", "price": 51}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := cat.Product("7"); !ok {
		t.Fatal("expected numeric id to be normalized to a string")
	}
}

func TestPriceUsesMostExpensiveFlavor(t *testing.T) {
	cat := mustCatalog(t)

	priced, err := cat.Price(Selection{
		ProductID: "calabresa",
		Size:      enums.PizzaSizeGrande,
		FlavorIDs: []string{"calabresa", "marguerita", "camarao"},
	})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if priced.UnitPrice.String() != "79.9" {
		t.Fatalf("expected max flavor price 79.9, got %s", priced.UnitPrice)
	}
	if len(priced.FlavorNames) != 3 || priced.FlavorNames[2] != "Camarão" {
		t.Fatalf("unexpected flavor names %v", priced.FlavorNames)
	}
}

func TestPriceAddsBorderAndExtras(t *testing.T) {
	cat := mustCatalog(t)

	priced, err := cat.Price(Selection{
		ProductID: "marguerita",
		Size:      enums.PizzaSizeBroto,
		Border:    "catupiry",
		Extras:    []string{"bacon", "ovo"},
	})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	// 35 + 8 + 4.50 + 2
	if priced.UnitPrice.String() != "49.5" {
		t.Fatalf("unexpected unit price %s", priced.UnitPrice)
	}
	if priced.BorderName != "Catupiry" {
		t.Fatalf("unexpected border %q", priced.BorderName)
	}

	plain, err := cat.Price(Selection{ProductID: "marguerita", Size: enums.PizzaSizeGrande, Border: NoBorder})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if plain.UnitPrice.String() != "54.5" || plain.Border != "" {
		t.Fatalf("unexpected plain pricing %+v", plain)
	}
}

func TestPriceRejectsInvalidSelections(t *testing.T) {
	cat := mustCatalog(t)
	cases := map[string]Selection{
		"unknown product": {ProductID: "x", Size: enums.PizzaSizeGrande},
		"bad size":        {ProductID: "calabresa", Size: "familia"},
		"too many":        {ProductID: "calabresa", Size: enums.PizzaSizeGrande, FlavorIDs: []string{"calabresa", "marguerita", "camarao", "x"}},
		"duplicate":       {ProductID: "calabresa", Size: enums.PizzaSizeGrande, FlavorIDs: []string{"calabresa", "calabresa"}},
		"no broto":        {ProductID: "camarao", Size: enums.PizzaSizeBroto},
		"unknown extra":   {ProductID: "calabresa", Size: enums.PizzaSizeGrande, Extras: []string{"abacaxi"}},
	}
	for name, sel := range cases {
		if _, err := cat.Price(sel); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

type stubFetcher struct {
	calls int
	resp  *storeapi.Response
	err   error
}

func (s *stubFetcher) FetchMenu(context.Context) (*storeapi.Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestServiceCachesCatalog(t *testing.T) {
	fetcher := &stubFetcher{resp: &storeapi.Response{OK: true, Status: 200, Data: json.RawMessage(menuJSON)}}
	svc, err := NewService(fetcher, time.Minute)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.Catalog(context.Background()); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if _, err := svc.Catalog(context.Background()); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetcher.calls)
	}

	now = now.Add(2 * time.Minute)
	fetcher.resp = nil
	fetcher.err = errors.New("offline")
	cat, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("expected stale catalog on refresh failure, got %v", err)
	}
	if len(cat.Pizzas) != 3 || fetcher.calls != 2 {
		t.Fatalf("unexpected refresh behaviour: pizzas=%d calls=%d", len(cat.Pizzas), fetcher.calls)
	}
}

func TestServiceReportsBackendFailure(t *testing.T) {
	fetcher := &stubFetcher{resp: &storeapi.Response{OK: false, Status: 503, Data: json.RawMessage(`{"message":"manutencao"}`)}}
	svc, _ := NewService(fetcher, time.Minute)

	_, err := svc.Catalog(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
