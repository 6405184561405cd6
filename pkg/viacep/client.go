package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
)

const (
	defaultBaseURL             = "https://viacep.com.br/ws"
	requestBodyReadLimit int64 = 1024
)

// Client looks up Brazilian postal codes (CEP).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the ViaCEP base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout replaces the HTTP client with one using timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Address is the subset of the ViaCEP payload checkout uses.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
}

// FormattedStreet renders "logradouro, bairro - localidade/uf".
func (a Address) FormattedStreet() string {
	return strings.TrimSpace(fmt.Sprintf("%s, %s - %s/%s", a.Street, a.Neighborhood, a.City, a.State))
}

// Digits strips everything but 0-9 from raw.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup resolves a CEP. Input may contain punctuation but must have 8 digits.
// Unknown CEPs return CodeNotFound.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	digits := Digits(cep)
	if len(digits) != 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "CEP inválido. Use 8 dígitos.")
	}

	url := fmt.Sprintf("%s/%s/json/", strings.TrimRight(c.baseURL, "/"), digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build viacep request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Erro ao buscar CEP. Tente novamente.")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "CEP inválido. Use 8 dígitos.")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "Erro ao buscar CEP. Tente novamente.")
	}

	var payload struct {
		Address
		Erro any `json:"erro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode viacep response")
	}
	if isTruthy(payload.Erro) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "CEP não encontrado.")
	}

	addr := payload.Address
	return &addr, nil
}

// ViaCEP has answered both {"erro": true} and {"erro": "true"}.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}
