// Package cart holds the authoritative-cached cart. Every mutation
// round-trips to the server and replaces the whole local cart with the
// server's response; the client never patches totals locally.
package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/domain"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must not be negative")
	ErrInvalidItemIndex = errors.New("item index out of range")
	ErrEmptyCouponCode  = errors.New("coupon code is empty")
	ErrNoCart           = errors.New("cart not loaded")
)

// API is the slice of the backend client the store needs.
type API interface {
	GetOrCreateCart(ctx context.Context, creds api.Credentials) (*domain.Cart, error)
	AddItem(ctx context.Context, creds api.Credentials, cartID, productID string, quantity int, variantID string) (*domain.Cart, error)
	UpdateItem(ctx context.Context, creds api.Credentials, cartID string, itemIndex, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, creds api.Credentials, cartID string, itemIndex int) (*domain.Cart, error)
	ApplyCoupon(ctx context.Context, creds api.Credentials, cartID, code string) (*domain.Cart, error)
	RemoveCoupon(ctx context.Context, creds api.Credentials, cartID string) (*domain.Cart, error)
}

// CredentialsFunc resolves the caller's credentials at call time, so a login
// or logout elsewhere is picked up by the next operation.
type CredentialsFunc func(ctx context.Context) api.Credentials

// Store serializes all operations for one cart: the mutex is held across the
// whole round trip, so two mutations can never be in flight with interleaved
// responses. On failure the last known-good server-confirmed cart remains.
type Store struct {
	api   API
	creds CredentialsFunc

	mu   sync.Mutex
	sfg  singleflight.Group // coalesces concurrent initial loads
	cart *domain.Cart
}

func NewStore(backend API, creds CredentialsFunc) *Store {
	return &Store{api: backend, creds: creds}
}

// Current returns the last server-confirmed cart, nil before the first load.
func (s *Store) Current() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// GetOrCreate loads or lazily creates the cart. Safe to call repeatedly;
// concurrent callers share one in-flight load.
func (s *Store) GetOrCreate(ctx context.Context) (*domain.Cart, error) {
	creds := s.creds(ctx)
	v, err, _ := s.sfg.Do(creds.SessionID+"|"+creds.Token, func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c, errGet := s.api.GetOrCreateCart(ctx, creds)
		if errGet != nil {
			return nil, errGet
		}
		s.cart = c
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *Store) AddItem(ctx context.Context, productID string, quantity int, variantID string) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return nil, err
	}
	c, err := s.api.AddItem(ctx, s.creds(ctx), s.cart.ID, productID, quantity, variantID)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return c, nil
}

// UpdateQuantity sets a line's quantity. Zero is equivalent to removal;
// negative quantities are rejected before any call is made.
func (s *Store) UpdateQuantity(ctx context.Context, itemIndex, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return nil, ErrNoCart
	}
	if itemIndex < 0 || itemIndex >= len(s.cart.Items) {
		return nil, ErrInvalidItemIndex
	}
	c, err := s.api.UpdateItem(ctx, s.creds(ctx), s.cart.ID, itemIndex, quantity)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return c, nil
}

func (s *Store) RemoveItem(ctx context.Context, itemIndex int) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return nil, ErrNoCart
	}
	if itemIndex < 0 || itemIndex >= len(s.cart.Items) {
		return nil, ErrInvalidItemIndex
	}
	c, err := s.api.RemoveItem(ctx, s.creds(ctx), s.cart.ID, itemIndex)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return c, nil
}

// ApplyCoupon applies code, implicitly superseding any previous coupon. The
// server decides validity; rejections are surfaced verbatim.
func (s *Store) ApplyCoupon(ctx context.Context, code string) (*domain.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCouponCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return nil, ErrNoCart
	}
	c, err := s.api.ApplyCoupon(ctx, s.creds(ctx), s.cart.ID, code)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return c, nil
}

// RemoveCoupon is a no-op when no coupon is active.
func (s *Store) RemoveCoupon(ctx context.Context) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return nil, ErrNoCart
	}
	if s.cart.ActiveCoupon() == "" {
		return s.cart, nil
	}
	c, err := s.api.RemoveCoupon(ctx, s.creds(ctx), s.cart.ID)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return c, nil
}

func (s *Store) ensureLocked(ctx context.Context) error {
	if s.cart != nil {
		return nil
	}
	c, err := s.api.GetOrCreateCart(ctx, s.creds(ctx))
	if err != nil {
		return err
	}
	s.cart = c
	return nil
}
