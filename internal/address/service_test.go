package address

import (
	"context"
	"testing"

	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/viacep"
)

type stubCEP struct {
	addr *viacep.Address
	err  error
	hits int
}

func (s *stubCEP) Lookup(context.Context, string) (*viacep.Address, error) {
	s.hits++
	return s.addr, s.err
}

func TestLookupMapsAddress(t *testing.T) {
	client := &stubCEP{addr: &viacep.Address{CEP: "02012-000", Street: "Rua Alfredo Pujol", Neighborhood: "Santana", City: "São Paulo", State: "SP"}}
	svc := NewService(client)

	result, err := svc.Lookup(context.Background(), LookupRequest{CEP: "02012-000"})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if result.Street != "Rua Alfredo Pujol, Santana - São Paulo/SP" {
		t.Fatalf("unexpected street %q", result.Street)
	}
	if result.CEP != "02012000" || result.Neighborhood != "Santana" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestMapAddressKeepsCurrentNeighborhood(t *testing.T) {
	result, err := mapAddress(&viacep.Address{CEP: "02000000", Street: "Rua Geral", City: "São Paulo", State: "SP"}, "Mandaqui")
	if err != nil {
		t.Fatalf("mapAddress failed: %v", err)
	}
	if result.Neighborhood != "Mandaqui" {
		t.Fatalf("expected fallback neighborhood, got %q", result.Neighborhood)
	}
}

func TestLookupRejectsShortCEP(t *testing.T) {
	client := &stubCEP{}
	svc := NewService(client)

	_, err := svc.Lookup(context.Background(), LookupRequest{CEP: "0201"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if client.hits != 0 {
		t.Fatal("client should not be called for short CEP")
	}
}

func TestLookupPropagatesNotFound(t *testing.T) {
	svc := NewService(&stubCEP{err: pkgerrors.New(pkgerrors.CodeNotFound, "CEP não encontrado.")})
	_, err := svc.Lookup(context.Background(), LookupRequest{CEP: "99999999"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
