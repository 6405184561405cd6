package customers

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
	"github.com/annetom/pizzaria-checkout/pkg/types"
)

const (
	MinPhoneDigits = 10

	MessageLookupFailed = "Não foi possível consultar o cadastro agora."
	MessageNotFound     = "Cliente não encontrado. Complete seus dados para finalizar o cadastro."
)

type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
}

type Customer struct {
	ID      types.FlexID `json:"id"`
	Name    string       `json:"name"`
	Phone   string       `json:"phone"`
	Address Address      `json:"address"`
}

// Profile is the customer data collected during checkout.
type Profile struct {
	Name         string
	Phone        string
	CEP          string
	Street       string
	Neighborhood string
}

type Backend interface {
	CustomerByPhone(ctx context.Context, digits string) (*storeapi.Response, error)
	CreateCustomer(ctx context.Context, payload any) (*storeapi.Response, error)
}

type Service struct {
	backend Backend
	logg    *logger.Logger
}

func NewService(backend Backend, logg *logger.Logger) (*Service, error) {
	if backend == nil {
		return nil, errors.New(errors.CodeInternal, "customer backend is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{backend: backend, logg: logg}, nil
}

// FindByPhone returns the customer registered under phone, or nil when the
// backend answers 404.
func (s *Service) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	digits := Digits(phone)
	if len(digits) < MinPhoneDigits {
		return nil, errors.New(errors.CodeValidation, "Informe o WhatsApp com DDD.")
	}

	resp, err := s.backend.CustomerByPhone(ctx, digits)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, MessageLookupFailed)
	}
	if resp.Status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.OK {
		ctx = s.logg.WithPhone(ctx, digits)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"status": resp.Status, "body": resp.Text()}), "customers.lookup.failed")
		return nil, errors.New(errors.CodeDependency, MessageLookupFailed)
	}

	var customer Customer
	if err := decodeCustomer(resp, &customer); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, MessageLookupFailed)
	}
	if customer.ID == "" && customer.Name == "" {
		return nil, nil
	}
	return &customer, nil
}

// Ensure registers profile with the backend and returns the stored customer.
func (s *Service) Ensure(ctx context.Context, profile Profile) (*Customer, error) {
	name := strings.TrimSpace(profile.Name)
	digits := Digits(profile.Phone)
	if name == "" || digits == "" {
		return nil, errors.New(errors.CodeValidation, "name and phone are required")
	}

	payload := map[string]any{
		"source": "website",
		"name":   name,
		"phone":  digits,
		"address": Address{
			CEP:          profile.CEP,
			Street:       profile.Street,
			Neighborhood: profile.Neighborhood,
		},
	}
	resp, err := s.backend.CreateCustomer(ctx, payload)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "save customer")
	}
	if resp.Failed() {
		msg := resp.Message()
		if msg == "" {
			msg = "save customer"
		}
		s.logg.Warn(s.logg.WithField(s.logg.WithPhone(ctx, digits), "status", resp.Status), "customers.create.failed")
		return nil, errors.FromUpstream(resp.Status, msg)
	}

	var customer Customer
	if err := decodeCustomer(resp, &customer); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "decode customer")
	}
	if customer.ID == "" {
		return nil, errors.New(errors.CodeDependency, "backend returned a customer without id")
	}
	return &customer, nil
}

// decodeCustomer accepts the bare customer or a {customer}/{data} envelope.
func decodeCustomer(resp *storeapi.Response, dest *Customer) error {
	var envelope struct {
		Customer *Customer `json:"customer"`
		Data     *Customer `json:"data"`
	}
	if err := resp.JSON(&envelope); err == nil {
		switch {
		case envelope.Customer != nil:
			*dest = *envelope.Customer
			return nil
		case envelope.Data != nil:
			*dest = *envelope.Data
			return nil
		}
	}
	return resp.JSON(dest)
}

// Digits strips everything but 0-9.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneDedupe remembers the last phone number looked up in a session so
// repeated lookups of the same number are skipped.
type PhoneDedupe struct {
	mu   sync.Mutex
	last string
}

// ShouldLookup reports whether digits deserve a backend call and records
// them. An empty phone clears the memory.
func (d *PhoneDedupe) ShouldLookup(phone string) bool {
	digits := Digits(phone)
	d.mu.Lock()
	defer d.mu.Unlock()
	if digits == "" {
		d.last = ""
		return false
	}
	if len(digits) < MinPhoneDigits || digits == d.last {
		return false
	}
	d.last = digits
	return true
}

// Forget clears the remembered phone so the next lookup runs again.
func (d *PhoneDedupe) Forget() {
	d.mu.Lock()
	d.last = ""
	d.mu.Unlock()
}
