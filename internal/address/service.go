package address

import (
	"context"
	"strings"

	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/viacep"
)

type cepClient interface {
	Lookup(ctx context.Context, cep string) (*viacep.Address, error)
}

type Service interface {
	Lookup(ctx context.Context, req LookupRequest) (Address, error)
}

type service struct {
	cep cepClient
}

func NewService(client cepClient) Service {
	return &service{cep: client}
}

func (s *service) Lookup(ctx context.Context, req LookupRequest) (Address, error) {
	if s == nil || s.cep == nil {
		return Address{}, errors.New(errors.CodeDependency, "cep client unavailable")
	}
	if len(viacep.Digits(req.CEP)) != 8 {
		return Address{}, errors.New(errors.CodeValidation, "CEP inválido. Use 8 dígitos.")
	}

	raw, err := s.cep.Lookup(ctx, req.CEP)
	if err != nil {
		return Address{}, err
	}
	return mapAddress(raw, req.CurrentNeighborhood)
}

// mapAddress fills the checkout street line as "logradouro, bairro - cidade/UF".
// The neighborhood keeps the customer's value when the CEP has none.
func mapAddress(raw *viacep.Address, currentNeighborhood string) (Address, error) {
	if raw == nil {
		return Address{}, errors.New(errors.CodeDependency, "Erro ao buscar CEP. Tente novamente.")
	}

	neighborhood := strings.TrimSpace(raw.Neighborhood)
	if neighborhood == "" {
		neighborhood = strings.TrimSpace(currentNeighborhood)
	}

	return Address{
		CEP:          viacep.Digits(raw.CEP),
		Street:       raw.FormattedStreet(),
		Neighborhood: neighborhood,
		City:         raw.City,
		State:        raw.State,
	}, nil
}

type LookupRequest struct {
	CEP                 string
	CurrentNeighborhood string
}

type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}
