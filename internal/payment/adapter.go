// Package payment reconciles three incompatible payment completion models
// behind one interface: synchronous client-confirmed (card), redirect to a
// hosted page (crypto), and asynchronous poll-until-paid (QR/app).
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/revive-shop/commerce-core/internal/domain"
)

var (
	ErrMissingClientSecret = errors.New("payment session has no client secret")
	ErrMissingHostedURL    = errors.New("payment session has no hosted URL")
	ErrPollStopped         = errors.New("payment polling stopped")
)

// Result is the outcome of driving a provider's completion model.
type Result struct {
	// Paid means the payment is confirmed and checkout may complete.
	Paid bool
	// RedirectURL, when set, requires a full-page navigation to a
	// provider-hosted page; completion is detected only on return.
	RedirectURL string
}

// Adapter owns one provider's completion-detection strategy. The checkout
// flow depends only on this interface.
type Adapter interface {
	Provider() domain.Provider
	// Complete drives the provider-specific flow for an initiated session.
	Complete(ctx context.Context, session *domain.PaymentSession, order *domain.Order) (Result, error)
}

// DeclinedError is a provider-side refusal of a confirmation attempt. The
// session stays usable; the caller remains payment-pending and may retry
// without re-initiating.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	return e.Message
}

func IsDeclined(err error) bool {
	var de *DeclinedError
	return errors.As(err, &de)
}

// ForProvider returns the adapter for p from the given set.
func ForProvider(p domain.Provider, adapters ...Adapter) (Adapter, error) {
	for _, a := range adapters {
		if a.Provider() == p {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no payment adapter for provider %q", p)
}
