package payment

import (
	"context"

	"github.com/revive-shop/commerce-core/internal/domain"
)

// CardConfirmer is the provider's client library: it renders the payment
// form and runs the confirm call, including any out-of-band challenge
// (3-D Secure equivalent) entirely on its side.
type CardConfirmer interface {
	ConfirmPayment(ctx context.Context, clientSecret string) error
}

// EmbeddedConfirmAdapter completes card payments in place: the session's
// client secret feeds an embedded form and a synchronous confirm call.
type EmbeddedConfirmAdapter struct {
	confirmer CardConfirmer
}

func NewEmbeddedConfirmAdapter(confirmer CardConfirmer) *EmbeddedConfirmAdapter {
	return &EmbeddedConfirmAdapter{confirmer: confirmer}
}

func (a *EmbeddedConfirmAdapter) Provider() domain.Provider {
	return domain.ProviderStripe
}

// Complete confirms the payment. A decline keeps the session valid: the
// caller surfaces the provider's message and retries with the same session.
func (a *EmbeddedConfirmAdapter) Complete(ctx context.Context, session *domain.PaymentSession, _ *domain.Order) (Result, error) {
	if session == nil || session.ClientSecret == "" {
		return Result{}, ErrMissingClientSecret
	}
	if err := a.confirmer.ConfirmPayment(ctx, session.ClientSecret); err != nil {
		return Result{}, err
	}
	return Result{Paid: true}, nil
}
