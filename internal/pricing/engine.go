// Package pricing recomputes totals for a cart and a chosen shipping option.
// Decoupled from cart mutation: a shipping-option change fetches a fresh
// quote without re-sending item mutations.
package pricing

import (
	"context"
	"errors"
	"sync"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/domain"
)

// ErrSuperseded is returned when a newer quote was requested before this
// response arrived. The response is discarded; Latest keeps the quote of the
// last initiated request that has completed.
var ErrSuperseded = errors.New("quote superseded by a newer request")

type QuoteAPI interface {
	CartTotals(ctx context.Context, creds api.Credentials, cartID, shippingOptionID string) (*domain.CartTotals, error)
}

type CredentialsFunc func(ctx context.Context) api.Credentials

// Engine binds the displayed total to the latest requested quote. Quotes are
// independent reads and may complete out of order; responses to requests the
// engine no longer cares about are dropped by token comparison.
type Engine struct {
	api   QuoteAPI
	creds CredentialsFunc

	mu       sync.Mutex
	seq      uint64 // token of the last issued request
	inFlight int
	latest   *domain.CartTotals
}

func NewEngine(backend QuoteAPI, creds CredentialsFunc) *Engine {
	return &Engine{api: backend, creds: creds}
}

// Quote fetches a fresh pricing quote. Must be re-issued after every
// cart-mutating call whose effect on totals matters; a stale quote is never
// presented as authoritative.
func (e *Engine) Quote(ctx context.Context, cartID, shippingOptionID string) (*domain.CartTotals, error) {
	e.mu.Lock()
	e.seq++
	token := e.seq
	e.inFlight++
	e.mu.Unlock()

	totals, err := e.api.CartTotals(ctx, e.creds(ctx), cartID, shippingOptionID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight--

	if err != nil {
		return nil, err
	}
	if token < e.seq {
		// A newer request was initiated while this one was in flight; the
		// last initiated request's response is authoritative.
		return nil, ErrSuperseded
	}
	e.latest = totals
	return totals, nil
}

// Latest returns the most recent accepted quote, nil before the first one.
func (e *Engine) Latest() *domain.CartTotals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

// Provisional reports whether a quote is in flight, in which case any shown
// total should be marked as provisional rather than authoritative.
func (e *Engine) Provisional() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight > 0
}

// Invalidate drops the held quote, to be called after cart mutations so the
// stale snapshot cannot be read back as current.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = nil
}
