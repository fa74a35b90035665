package payment

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/domain"
)

// DefaultPollInterval is the fixed interval between order-status reads.
// There is no backoff: failed ticks are retried by the next scheduled one.
const DefaultPollInterval = 4 * time.Second

type OrderStatusAPI interface {
	CheckoutOrder(ctx context.Context, creds api.Credentials, orderNumber string) (*domain.Order, error)
}

type CredentialsFunc func(ctx context.Context) api.Credentials

// Poller watches an order until it is paid. Each poll is a plain read with
// no side effects. It stops on success, context cancellation, or an explicit
// Stop (the user switching payment method).
type Poller struct {
	api      OrderStatusAPI
	creds    CredentialsFunc
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewPoller(backend OrderStatusAPI, creds CredentialsFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		api:      backend,
		creds:    creds,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Stop cancels polling. Safe to call more than once and after completion.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Run polls the order at the fixed interval and returns it once its status
// is paid. Poll failures are logged and retried by the next tick.
func (p *Poller) Run(ctx context.Context, orderNumber string) (*domain.Order, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		order, err := p.api.CheckoutOrder(ctx, p.creds(ctx), orderNumber)
		if err != nil {
			log.Printf("order %s poll failed: %v", orderNumber, err)
		} else if order.Status == domain.OrderStatusPaid {
			return order, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.stop:
			return nil, ErrPollStopped
		case <-ticker.C:
		}
	}
}

// AsyncPollAdapter completes QR/app-confirmed payments by polling the order
// status until it is paid.
type AsyncPollAdapter struct {
	api      OrderStatusAPI
	creds    CredentialsFunc
	interval time.Duration
}

func NewAsyncPollAdapter(backend OrderStatusAPI, creds CredentialsFunc, interval time.Duration) *AsyncPollAdapter {
	return &AsyncPollAdapter{api: backend, creds: creds, interval: interval}
}

func (a *AsyncPollAdapter) Provider() domain.Provider {
	return domain.ProviderTwint
}

func (a *AsyncPollAdapter) Complete(ctx context.Context, session *domain.PaymentSession, order *domain.Order) (Result, error) {
	if session == nil || session.HostedURL == "" {
		return Result{}, ErrMissingHostedURL
	}
	poller := NewPoller(a.api, a.creds, a.interval)
	defer poller.Stop()

	if _, err := poller.Run(ctx, order.OrderNumber); err != nil {
		return Result{}, err
	}
	return Result{Paid: true}, nil
}
