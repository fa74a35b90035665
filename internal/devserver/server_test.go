package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/cart"
	"github.com/revive-shop/commerce-core/internal/checkout"
	"github.com/revive-shop/commerce-core/internal/domain"
	"github.com/revive-shop/commerce-core/internal/orders"
	"github.com/revive-shop/commerce-core/internal/payment"
	"github.com/revive-shop/commerce-core/internal/pricing"
)

func testAddress() domain.Address {
	return domain.Address{
		FirstName:  "Lena",
		LastName:   "Keller",
		Street:     "Bahnhofstrasse 12",
		City:       "Zürich",
		PostalCode: "8001",
		Country:    "CH",
		Phone:      "+41 79 123 45 67",
	}
}

func newClient(t *testing.T) (*api.Client, *Server, func()) {
	t.Helper()
	srv := New()
	ts := httptest.NewServer(srv)
	client, err := api.New(api.Config{BaseURL: ts.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client, srv, ts.Close
}

func sessionCreds(id string) cart.CredentialsFunc {
	return func(ctx context.Context) api.Credentials {
		return api.Credentials{SessionID: id}
	}
}

func TestCartLifecycleAgainstServer(t *testing.T) {
	client, _, stop := newClient(t)
	defer stop()

	ctx := context.Background()
	creds := api.Credentials{SessionID: "sess_integration"}

	store := cart.NewStore(client, sessionCreds("sess_integration"))
	c, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	c, err = store.AddItem(ctx, "prod-espresso", 2, "")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.InDelta(t, 49.80, c.Subtotal, 0.001)

	c, err = store.AddItem(ctx, "prod-mug", 1, "")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)

	// server computes all money fields
	c, err = store.ApplyCoupon(ctx, "SAVE5")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, c.Discount, 0.001)
	assert.Equal(t, "SAVE5", c.ActiveCoupon())

	// a second coupon supersedes the first
	c, err = store.ApplyCoupon(ctx, "TENOFF")
	require.NoError(t, err)
	assert.Equal(t, "TENOFF", c.ActiveCoupon())
	assert.InDelta(t, 6.23, c.Discount, 0.001)

	// unknown coupon is a domain rejection with the server's message
	_, err = store.ApplyCoupon(ctx, "NOPE")
	require.Error(t, err)
	assert.True(t, api.IsDomainRejection(err))
	assert.Equal(t, "Invalid coupon code", err.Error())

	// quantity zero removes the line
	c, err = store.UpdateQuantity(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	engine := pricing.NewEngine(client, pricing.CredentialsFunc(func(ctx context.Context) api.Credentials {
		return creds
	}))
	totals, err := engine.Quote(ctx, c.ID, "express")
	require.NoError(t, err)
	assert.Equal(t, 14.90, totals.ShippingCost)
	assert.InDelta(t, totals.AfterDiscount+totals.ShippingCost, totals.Total, 0.001)
}

func TestCouponMinimumOrderRejected(t *testing.T) {
	client, _, stop := newClient(t)
	defer stop()

	ctx := context.Background()
	store := cart.NewStore(client, sessionCreds("sess_min"))
	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "prod-mug", 1, "")
	require.NoError(t, err)

	_, err = store.ApplyCoupon(ctx, "TENOFF")
	require.Error(t, err)
	assert.True(t, api.IsDomainRejection(err))
	assert.Contains(t, err.Error(), "minimum order")
}

func TestCheckoutHappyPathWithPolling(t *testing.T) {
	client, srv, stop := newClient(t)
	defer stop()

	ctx := context.Background()
	creds := api.Credentials{SessionID: "sess_checkout"}
	credsFn := func(ctx context.Context) api.Credentials { return creds }

	store := cart.NewStore(client, sessionCreds("sess_checkout"))
	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	c, err := store.AddItem(ctx, "prod-grinder", 1, "")
	require.NoError(t, err)

	machine := checkout.NewMachine(client, credsFn)
	require.NoError(t, machine.SetAddress(testAddress(), "lena@example.com"))

	order, err := machine.CreateOrder(ctx, c.ID, "standard")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.InDelta(t, 94.90, order.Total, 0.001)

	// same attempt never creates a second order
	again, err := machine.CreateOrder(ctx, c.ID, "standard")
	require.NoError(t, err)
	assert.Same(t, order, again)

	session, err := machine.InitiatePayment(ctx, domain.ProviderTwint)
	require.NoError(t, err)
	assert.NotEmpty(t, session.HostedURL)

	adapter := payment.NewAsyncPollAdapter(client, func(ctx context.Context) api.Credentials {
		return creds
	}, 10*time.Millisecond)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = srv.MarkOrderPaid(order.OrderNumber)
	}()

	result, err := adapter.Complete(ctx, session, order)
	require.NoError(t, err)
	assert.True(t, result.Paid)
	require.NoError(t, machine.Complete())
	assert.Equal(t, checkout.StateCompleted, machine.State())

	// order checkout consumed the cart
	fresh, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh.Items)
}

func TestProviderSessions(t *testing.T) {
	client, _, stop := newClient(t)
	defer stop()

	ctx := context.Background()
	creds := func(ctx context.Context) api.Credentials {
		return api.Credentials{SessionID: "sess_providers"}
	}

	store := cart.NewStore(client, cart.CredentialsFunc(creds))
	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	c, err := store.AddItem(ctx, "prod-espresso", 1, "")
	require.NoError(t, err)

	machine := checkout.NewMachine(client, creds)
	require.NoError(t, machine.SetAddress(testAddress(), "lena@example.com"))
	_, err = machine.CreateOrder(ctx, c.ID, "standard")
	require.NoError(t, err)

	stripe, err := machine.InitiatePayment(ctx, domain.ProviderStripe)
	require.NoError(t, err)
	assert.NotEmpty(t, stripe.ClientSecret)
	assert.Empty(t, stripe.HostedURL)

	// switching providers drops the stripe session and issues a hosted one
	coinbase, err := machine.InitiatePayment(ctx, domain.ProviderCoinbase)
	require.NoError(t, err)
	assert.Empty(t, coinbase.ClientSecret)
	assert.NotEmpty(t, coinbase.HostedURL)
}

func TestGuestTracking(t *testing.T) {
	client, srv, stop := newClient(t)
	defer stop()

	ctx := context.Background()
	creds := func(ctx context.Context) api.Credentials {
		return api.Credentials{SessionID: "sess_guest"}
	}

	store := cart.NewStore(client, cart.CredentialsFunc(creds))
	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	c, err := store.AddItem(ctx, "prod-mug", 2, "")
	require.NoError(t, err)

	machine := checkout.NewMachine(client, creds)
	require.NoError(t, machine.SetAddress(testAddress(), "guest@example.com"))
	order, err := machine.CreateOrder(ctx, c.ID, "standard")
	require.NoError(t, err)
	require.NoError(t, srv.MarkOrderPaid(order.OrderNumber))

	detail, err := client.TrackOrder(ctx, order.OrderNumber, "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, detail.Status)

	steps := orders.Reconstruct(detail)
	require.Len(t, steps, 2)
	assert.Equal(t, domain.OrderStatusPending, steps[0].Status)
	assert.Equal(t, domain.OrderStatusPaid, steps[1].Status)
	assert.True(t, steps[1].Current)

	// wrong email never leaks order data, and is indistinguishable from a
	// wrong order number
	_, err = client.TrackOrder(ctx, order.OrderNumber, "other@example.com")
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = client.TrackOrder(ctx, "ORD-9999", "guest@example.com")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestListOrdersRequiresToken(t *testing.T) {
	client, _, stop := newClient(t)
	defer stop()

	ctx := context.Background()
	_, err := client.ListOrders(ctx, api.Credentials{SessionID: "sess_anon"}, 1, 10)
	require.Error(t, err)
	assert.True(t, api.IsDomainRejection(err))
}
