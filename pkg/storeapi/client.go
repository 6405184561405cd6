package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/annetom/pizzaria-checkout/pkg/errors"
)

const (
	defaultBaseURL        = "https://api.annetom.com"
	defaultPixPath        = "/payments/pix"
	defaultCardPath       = "/payments/card"
	defaultTimeout        = 15 * time.Second
	responseReadLimit     = 4 << 20
	serviceName           = "storeapi"
	idempotencyHeaderName = "Idempotency-Key"
)

var errAPIKeyRequired = errors.New("store api key is required")

// Observer receives the outcome of every backend call.
type Observer interface {
	ObserveUpstream(service string, err error, duration time.Duration)
}

// Client talks to the pizzeria backend. Every request carries the x-api-key header.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pixPath    string
	cardPath   string
	observer   Observer
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

// WithBaseURL overrides the backend base URL.
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

// WithPaymentPaths overrides the PIX and card endpoints, which differ per deployment.
func WithPaymentPaths(pixPath, cardPath string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(pixPath); trimmed != "" {
			c.pixPath = trimmed
		}
		if trimmed := strings.TrimSpace(cardPath); trimmed != "" {
			c.cardPath = trimmed
		}
	}
}

// WithObserver reports call durations, e.g. to prometheus.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds the backend client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		pixPath:    defaultPixPath,
		cardPath:   defaultCardPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Do sends one request. Non-2xx replies come back as a Response with OK=false
// and a nil error. Transport failures return Response{OK:false, Status:0} and a
// CodeDependency error.
func (c *Client) Do(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	started := time.Now()
	resp, err := c.do(ctx, method, path, body, header)
	if c.observer != nil {
		c.observer.ObserveUpstream(serviceName, err, time.Since(started))
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Response{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return &Response{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build backend request")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &Response{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, responseReadLimit))
	if err != nil {
		return &Response{Status: httpResp.StatusCode}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read backend response")
	}

	return newResponse(httpResp.StatusCode, raw), nil
}

// FetchMenu loads the product catalog.
func (c *Client) FetchMenu(ctx context.Context) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "/api/menu", nil, nil)
}

// CustomerByPhone looks a customer up by phone digits. A 404 means not found.
func (c *Client) CustomerByPhone(ctx context.Context, digits string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "/api/customers/by-phone?phone="+url.QueryEscape(digits), nil, nil)
}

// CreateCustomer registers a new customer.
func (c *Client) CreateCustomer(ctx context.Context, payload any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/api/customers", payload, nil)
}

// CreateOrder submits a finalized order.
func (c *Client) CreateOrder(ctx context.Context, payload any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/api/orders", payload, nil)
}

// UpdateOrderStatus moves an order to status, e.g. "finalizado".
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (*Response, error) {
	path := fmt.Sprintf("/api/orders/%s/status", url.PathEscape(orderID))
	return c.Do(ctx, http.MethodPost, path, map[string]string{"status": status}, nil)
}

// ListOrders returns the orders of one customer.
func (c *Client) ListOrders(ctx context.Context, customerID string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "/api/orders?customerId="+url.QueryEscape(customerID), nil, nil)
}

// CourierStatus returns the delivery status of an order.
func (c *Client) CourierStatus(ctx context.Context, orderID string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "/motoboy/pedido/"+url.PathEscape(orderID), nil, nil)
}

// StoreSettings returns the point-of-sale settings (opening hours and the like).
func (c *Client) StoreSettings(ctx context.Context) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "/api/pdv/settings", nil, nil)
}

// CreatePix asks the payment provider for a PIX charge.
func (c *Client) CreatePix(ctx context.Context, payload any, idempotencyKey string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, c.pixPath, payload, idempotencyHeader(idempotencyKey))
}

// CreateCard starts a hosted card checkout.
func (c *Client) CreateCard(ctx context.Context, payload any, idempotencyKey string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, c.cardPath, payload, idempotencyHeader(idempotencyKey))
}

func idempotencyHeader(key string) http.Header {
	if key == "" {
		return nil
	}
	h := http.Header{}
	h.Set(idempotencyHeaderName, key)
	return h
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
