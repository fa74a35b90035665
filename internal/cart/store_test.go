package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/domain"
)

// mockBackend behaves like the server: it owns the cart and recomputes the
// pricing snapshot on every mutation. An atomic in-flight counter detects
// interleaved mutations.
type mockBackend struct {
	mu   sync.Mutex
	cart domain.Cart

	prices map[string]float64

	inFlight    int32
	maxInFlight int32
	calls       map[string]int

	err error
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		cart:   domain.Cart{ID: "cart-1"},
		prices: map[string]float64{"prod-a": 10, "prod-b": 25},
		calls:  map[string]int{},
	}
}

func (m *mockBackend) enter(op string) {
	n := atomic.AddInt32(&m.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&m.maxInFlight)
		if n <= seen || atomic.CompareAndSwapInt32(&m.maxInFlight, seen, n) {
			break
		}
	}
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
}

func (m *mockBackend) leave() {
	atomic.AddInt32(&m.inFlight, -1)
}

func (m *mockBackend) reprice() {
	subtotal := 0.0
	for _, line := range m.cart.Items {
		subtotal += line.Product.Price * float64(line.Quantity)
	}
	m.cart.Subtotal = subtotal
	if m.cart.CouponCode == "SAVE5" && subtotal > 0 {
		m.cart.Discount = 5
	} else {
		m.cart.Discount = 0
	}
	m.cart.AfterDiscount = subtotal - m.cart.Discount
	m.cart.Total = m.cart.AfterDiscount + m.cart.ShippingCost
}

func (m *mockBackend) snapshot() *domain.Cart {
	c := m.cart
	c.Items = append([]domain.CartLine(nil), m.cart.Items...)
	return &c
}

func (m *mockBackend) GetOrCreateCart(_ context.Context, _ api.Credentials) (*domain.Cart, error) {
	m.enter("get")
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot(), nil
}

func (m *mockBackend) AddItem(_ context.Context, _ api.Credentials, _, productID string, quantity int, variantID string) (*domain.Cart, error) {
	m.enter("add")
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.cart.Items = append(m.cart.Items, domain.CartLine{
		Product:   domain.Product{ID: productID, Price: m.prices[productID]},
		VariantID: variantID,
		Quantity:  quantity,
	})
	m.reprice()
	return m.snapshot(), nil
}

func (m *mockBackend) UpdateItem(_ context.Context, _ api.Credentials, _ string, itemIndex, quantity int) (*domain.Cart, error) {
	m.enter("update")
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if quantity == 0 {
		m.cart.Items = append(m.cart.Items[:itemIndex], m.cart.Items[itemIndex+1:]...)
	} else {
		m.cart.Items[itemIndex].Quantity = quantity
	}
	m.reprice()
	return m.snapshot(), nil
}

func (m *mockBackend) RemoveItem(_ context.Context, _ api.Credentials, _ string, itemIndex int) (*domain.Cart, error) {
	m.enter("remove")
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.cart.Items = append(m.cart.Items[:itemIndex], m.cart.Items[itemIndex+1:]...)
	m.reprice()
	return m.snapshot(), nil
}

func (m *mockBackend) ApplyCoupon(_ context.Context, _ api.Credentials, _, code string) (*domain.Cart, error) {
	m.enter("applyCoupon")
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.cart.CouponCode = code
	m.reprice()
	return m.snapshot(), nil
}

func (m *mockBackend) RemoveCoupon(_ context.Context, _ api.Credentials, _ string) (*domain.Cart, error) {
	m.enter("removeCoupon")
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.cart.CouponCode = ""
	m.reprice()
	return m.snapshot(), nil
}

func anonymousCreds(context.Context) api.Credentials {
	return api.Credentials{SessionID: "sess_test"}
}

func TestStore_SnapshotAlwaysServerComputed(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)

	c, err := store.AddItem(ctx, "prod-a", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 20.0, c.Subtotal)

	c, err = store.AddItem(ctx, "prod-b", 1, "")
	require.NoError(t, err)
	assert.Equal(t, 45.0, c.Subtotal)

	c, err = store.UpdateQuantity(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 70.0, c.Subtotal)
	assert.Equal(t, c.Subtotal, store.Current().Subtotal)
}

func TestStore_UpdateToZeroEqualsRemove(t *testing.T) {
	ctx := context.Background()

	viaUpdate := newMockBackend()
	s1 := NewStore(viaUpdate, anonymousCreds)
	_, err := s1.GetOrCreate(ctx)
	require.NoError(t, err)
	_, err = s1.AddItem(ctx, "prod-a", 2, "")
	require.NoError(t, err)
	c1, err := s1.UpdateQuantity(ctx, 0, 0)
	require.NoError(t, err)

	viaRemove := newMockBackend()
	s2 := NewStore(viaRemove, anonymousCreds)
	_, err = s2.GetOrCreate(ctx)
	require.NoError(t, err)
	_, err = s2.AddItem(ctx, "prod-a", 2, "")
	require.NoError(t, err)
	c2, err := s2.RemoveItem(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, c1.Items, c2.Items)
	assert.Equal(t, c1.Subtotal, c2.Subtotal)
	assert.Empty(t, c1.Items)
}

func TestStore_RejectsInvalidQuantityBeforeCall(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "prod-a", 0, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = store.GetOrCreate(ctx)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "prod-a", 1, "")
	require.NoError(t, err)

	_, err = store.UpdateQuantity(ctx, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Zero(t, backend.calls["update"])
}

func TestStore_CouponSupersedes(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "prod-a", 2, "")
	require.NoError(t, err)

	c, err := store.ApplyCoupon(ctx, "SAVE5")
	require.NoError(t, err)
	assert.Equal(t, "SAVE5", c.ActiveCoupon())
	assert.Equal(t, 5.0, c.Discount)

	c, err = store.ApplyCoupon(ctx, "OTHER")
	require.NoError(t, err)
	assert.Equal(t, "OTHER", c.ActiveCoupon())
}

func TestStore_RemoveCouponWithoutActiveIsNoOp(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)

	c, err := store.RemoveCoupon(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.ActiveCoupon())
	assert.Zero(t, backend.calls["removeCoupon"])
}

func TestStore_FailureKeepsLastKnownGoodState(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "prod-a", 2, "")
	require.NoError(t, err)

	backend.mu.Lock()
	backend.err = assert.AnError
	backend.mu.Unlock()

	_, err = store.AddItem(ctx, "prod-b", 1, "")
	require.Error(t, err)

	current := store.Current()
	require.Len(t, current.Items, 1)
	assert.Equal(t, 20.0, current.Subtotal)
}

func TestStore_MutationsNeverInterleave(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errAdd := store.AddItem(ctx, "prod-a", 1, "")
			assert.NoError(t, errAdd)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, backend.maxInFlight, int32(1))
	assert.Len(t, store.Current().Items, 8)
	assert.Equal(t, 80.0, store.Current().Subtotal)
}

func TestStore_ConcurrentGetOrCreateCoalesces(t *testing.T) {
	backend := newMockBackend()
	store := NewStore(backend, anonymousCreds)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.GetOrCreate(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	backend.mu.Lock()
	gets := backend.calls["get"]
	backend.mu.Unlock()
	assert.Less(t, gets, 10)
}
