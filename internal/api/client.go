// Package api is the single HTTP surface toward the commerce backend. All
// payloads are JSON; the session identifier travels in the X-Session-Id
// header and authenticated calls add a bearer token. Every error leaving
// this package belongs to the taxonomy in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/revive-shop/commerce-core/internal/domain"
)

// Credentials identifies the caller for a single request. The cart endpoints
// accept either an anonymous session handle, a bearer token, or both (the
// server merges carts on login).
type Credentials struct {
	SessionID string
	Token     string
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "commerce-api",
		Timeout: 15 * time.Second,
		// Only connectivity failures trip the breaker; domain rejections and
		// not-found responses are normal traffic.
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}, nil
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, creds Credentials, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.SessionID != "" {
		req.Header.Set("X-Session-Id", creds.SessionID)
	}
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", serverMessage(data, "not found"), ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DomainError{
			Message:    serverMessage(data, resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func serverMessage(data []byte, fallback string) string {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return fallback
}

type cartEnvelope struct {
	Success bool         `json:"success"`
	Cart    *domain.Cart `json:"cart"`
}

// GetOrCreateCart loads or lazily creates the caller's cart. Safe to call
// repeatedly.
func (c *Client) GetOrCreateCart(ctx context.Context, creds Credentials) (*domain.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/cart", nil, nil, creds, &env); err != nil {
		return nil, err
	}
	return env.Cart, nil
}

type addItemRequest struct {
	CartID    string `json:"cartId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variantId,omitempty"`
}

func (c *Client) AddItem(ctx context.Context, creds Credentials, cartID, productID string, quantity int, variantID string) (*domain.Cart, error) {
	var env cartEnvelope
	req := addItemRequest{CartID: cartID, ProductID: productID, Quantity: quantity, VariantID: variantID}
	if err := c.do(ctx, http.MethodPost, "/cart/items", nil, req, creds, &env); err != nil {
		return nil, err
	}
	return env.Cart, nil
}

type updateItemRequest struct {
	CartID    string `json:"cartId"`
	ItemIndex int    `json:"itemIndex"`
	Quantity  int    `json:"quantity"`
}

func (c *Client) UpdateItem(ctx context.Context, creds Credentials, cartID string, itemIndex, quantity int) (*domain.Cart, error) {
	var env cartEnvelope
	req := updateItemRequest{CartID: cartID, ItemIndex: itemIndex, Quantity: quantity}
	if err := c.do(ctx, http.MethodPatch, "/cart/items", nil, req, creds, &env); err != nil {
		return nil, err
	}
	return env.Cart, nil
}

type cartIDRequest struct {
	CartID string `json:"cartId"`
}

func (c *Client) RemoveItem(ctx context.Context, creds Credentials, cartID string, itemIndex int) (*domain.Cart, error) {
	var env cartEnvelope
	path := "/cart/items/" + strconv.Itoa(itemIndex)
	if err := c.do(ctx, http.MethodDelete, path, nil, cartIDRequest{CartID: cartID}, creds, &env); err != nil {
		return nil, err
	}
	return env.Cart, nil
}

type couponRequest struct {
	CartID string `json:"cartId"`
	Code   string `json:"code,omitempty"`
}

func (c *Client) ApplyCoupon(ctx context.Context, creds Credentials, cartID, code string) (*domain.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/cart/coupon", nil, couponRequest{CartID: cartID, Code: code}, creds, &env); err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) RemoveCoupon(ctx context.Context, creds Credentials, cartID string) (*domain.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodDelete, "/cart/coupon", nil, couponRequest{CartID: cartID}, creds, &env); err != nil {
		return nil, err
	}
	return env.Cart, nil
}

type totalsEnvelope struct {
	Success bool `json:"success"`
	domain.CartTotals
}

// CartTotals fetches a fresh pricing quote for a cart and shipping option.
// Pure read: no cart mutation.
func (c *Client) CartTotals(ctx context.Context, creds Credentials, cartID, shippingOptionID string) (*domain.CartTotals, error) {
	query := url.Values{"cartId": {cartID}}
	if shippingOptionID != "" {
		query.Set("shippingOptionId", shippingOptionID)
	}
	var env totalsEnvelope
	if err := c.do(ctx, http.MethodGet, "/cart/totals", query, nil, creds, &env); err != nil {
		return nil, err
	}
	totals := env.CartTotals
	return &totals, nil
}

// CreateOrderRequest is the checkout submission. Guest contact fields let the
// server attach the order to an email without an account.
type CreateOrderRequest struct {
	CartID           string         `json:"cartId"`
	ShippingAddress  domain.Address `json:"shippingAddress"`
	ShippingOptionID string         `json:"shippingOptionId,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	GuestEmail       string         `json:"guestEmail,omitempty"`
	GuestFirstName   string         `json:"guestFirstName,omitempty"`
	GuestLastName    string         `json:"guestLastName,omitempty"`
}

type orderEnvelope struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
}

func (c *Client) CreateOrder(ctx context.Context, creds Credentials, req CreateOrderRequest) (*domain.Order, error) {
	var env orderEnvelope
	if err := c.do(ctx, http.MethodPost, "/checkout/order", nil, req, creds, &env); err != nil {
		return nil, err
	}
	return env.Order, nil
}

type createPaymentRequest struct {
	OrderID  string `json:"orderId"`
	Provider string `json:"provider"`
}

type paymentEnvelope struct {
	Success      bool   `json:"success"`
	ClientSecret string `json:"clientSecret"`
	HostedURL    string `json:"hostedUrl"`
	PaymentURL   string `json:"paymentUrl"`
}

// CreatePayment requests a payment session for an already-created order.
func (c *Client) CreatePayment(ctx context.Context, creds Credentials, orderID string, provider domain.Provider) (*domain.PaymentSession, error) {
	var env paymentEnvelope
	req := createPaymentRequest{OrderID: orderID, Provider: provider.String()}
	if err := c.do(ctx, http.MethodPost, "/checkout/payment", nil, req, creds, &env); err != nil {
		return nil, err
	}
	hosted := env.HostedURL
	if hosted == "" {
		hosted = env.PaymentURL
	}
	return &domain.PaymentSession{
		Provider:     provider,
		ClientSecret: env.ClientSecret,
		HostedURL:    hosted,
	}, nil
}

// CheckoutOrder reads an order by its human-facing number during checkout.
// Used by the async-poll payment flow; a plain read with no side effects.
func (c *Client) CheckoutOrder(ctx context.Context, creds Credentials, orderNumber string) (*domain.Order, error) {
	var env orderEnvelope
	path := "/checkout/order/" + url.PathEscape(orderNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, creds, &env); err != nil {
		return nil, err
	}
	return env.Order, nil
}

type ordersEnvelope struct {
	Success bool           `json:"success"`
	Orders  []domain.Order `json:"orders"`
	Total   int            `json:"total"`
}

func (c *Client) ListOrders(ctx context.Context, creds Credentials, page, limit int) ([]domain.Order, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var env ordersEnvelope
	if err := c.do(ctx, http.MethodGet, "/orders", query, nil, creds, &env); err != nil {
		return nil, err
	}
	return env.Orders, nil
}

type orderDetailEnvelope struct {
	Success bool                `json:"success"`
	Order   *domain.OrderDetail `json:"order"`
}

// GetOrder reads the full order view. guestEmail is required on the guest
// path when no token is present.
func (c *Client) GetOrder(ctx context.Context, creds Credentials, orderNumber, guestEmail string) (*domain.OrderDetail, error) {
	query := url.Values{}
	if guestEmail != "" {
		query.Set("email", guestEmail)
	}
	var env orderDetailEnvelope
	path := "/orders/" + url.PathEscape(orderNumber)
	if err := c.do(ctx, http.MethodGet, path, query, nil, creds, &env); err != nil {
		return nil, err
	}
	return env.Order, nil
}

// TrackOrder is the guest tracking path: order number plus email, no token.
// A wrong email yields ErrNotFound, never partial order data.
func (c *Client) TrackOrder(ctx context.Context, orderNumber, email string) (*domain.OrderDetail, error) {
	query := url.Values{"orderNumber": {orderNumber}, "email": {email}}
	var env orderDetailEnvelope
	if err := c.do(ctx, http.MethodGet, "/orders/track", query, nil, Credentials{}, &env); err != nil {
		return nil, err
	}
	return env.Order, nil
}
