package payment

import (
	"context"
	"net/url"

	"github.com/revive-shop/commerce-core/internal/domain"
)

// HostedRedirectAdapter hands the payment off to a provider-controlled page.
// There is no further client-side state: completion is detected only when
// the user returns via the success or cancel URL.
type HostedRedirectAdapter struct {
	provider domain.Provider
}

func NewHostedRedirectAdapter(provider domain.Provider) *HostedRedirectAdapter {
	return &HostedRedirectAdapter{provider: provider}
}

func (a *HostedRedirectAdapter) Provider() domain.Provider {
	return a.provider
}

func (a *HostedRedirectAdapter) Complete(_ context.Context, session *domain.PaymentSession, _ *domain.Order) (Result, error) {
	if session == nil || session.HostedURL == "" {
		return Result{}, ErrMissingHostedURL
	}
	return Result{RedirectURL: session.HostedURL}, nil
}

// HostedReturn is the decoded state of a return from a hosted page.
type HostedReturn struct {
	Cancelled   bool
	OrderNumber string
}

// ParseHostedReturn reads the query of the fixed callback URL. A cancel
// signal routes checkout back to editing with entered data discarded.
func ParseHostedReturn(query url.Values) HostedReturn {
	return HostedReturn{
		Cancelled:   query.Get("cancel") != "",
		OrderNumber: query.Get("orderNumber"),
	}
}
