// Package checkout sequences address validation, order creation, payment
// session creation and provider-specific confirmation as an explicit state
// machine. Invalid combinations ("payment pending" with no order) cannot be
// represented; failures roll back to the recovery step documented on each
// transition while keeping all entered data.
package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/domain"
)

type State int

const (
	StateEditing State = iota
	StateAddressValid
	StateOrderCreating
	StateOrderCreated
	StatePaymentInitiating
	StatePaymentPending
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateAddressValid:
		return "address_valid"
	case StateOrderCreating:
		return "order_creating"
	case StateOrderCreated:
		return "order_created"
	case StatePaymentInitiating:
		return "payment_initiating"
	case StatePaymentPending:
		return "payment_pending"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

var (
	ErrAddressNotValidated = errors.New("address has not been validated")
	ErrNoOrder             = errors.New("no order has been created")
	ErrIllegalTransition   = errors.New("illegal checkout state transition")
)

type API interface {
	CreateOrder(ctx context.Context, creds api.Credentials, req api.CreateOrderRequest) (*domain.Order, error)
	CreatePayment(ctx context.Context, creds api.Credentials, orderID string, provider domain.Provider) (*domain.PaymentSession, error)
}

type CredentialsFunc func(ctx context.Context) api.Credentials

// Machine drives one checkout attempt. The mutex is held across network
// calls, so a second submit while one is in flight blocks and then observes
// the already-created order instead of creating a duplicate.
type Machine struct {
	api   API
	creds CredentialsFunc

	mu      sync.Mutex
	state   State
	address domain.Address
	email   string
	notes   string

	order    *domain.Order
	provider domain.Provider
	session  *domain.PaymentSession
	lastErr  string
}

func NewMachine(backend API, creds CredentialsFunc) *Machine {
	return &Machine{api: backend, creds: creds, state: StateEditing}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Order returns the order created by this attempt, nil before creation. It
// is retained across payment failures so a retry never re-creates it.
func (m *Machine) Order() *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order
}

func (m *Machine) Session() *domain.PaymentSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// LastError returns the user-facing message of the most recent failure.
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SetAddress validates and stores the shipping address and confirmation
// email. On success the machine moves to AddressValid; on failure it stays
// in Editing with the entered data kept for correction.
func (m *Machine) SetAddress(address domain.Address, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.address = address
	m.email = email

	if m.state != StateEditing && m.state != StateAddressValid {
		return ErrIllegalTransition
	}
	if err := ValidateAddress(address); err != nil {
		m.lastErr = err.Error()
		return err
	}
	if err := ValidateEmail(email); err != nil {
		m.lastErr = err.Error()
		return err
	}
	m.state = StateAddressValid
	return nil
}

// SetNotes attaches optional order notes; allowed while editing only.
func (m *Machine) SetNotes(notes string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = notes
}

// CreateOrder creates the order exactly once per checkout attempt. A second
// call, including retries after payment failures, returns the cached order.
func (m *Machine) CreateOrder(ctx context.Context, cartID, shippingOptionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.order != nil {
		return m.order, nil
	}
	if m.state != StateAddressValid {
		return nil, ErrAddressNotValidated
	}

	m.state = StateOrderCreating
	order, err := m.api.CreateOrder(ctx, m.creds(ctx), api.CreateOrderRequest{
		CartID:           cartID,
		ShippingAddress:  m.address,
		ShippingOptionID: shippingOptionID,
		Notes:            m.notes,
		GuestEmail:       m.email,
		GuestFirstName:   m.address.FirstName,
		GuestLastName:    m.address.LastName,
	})
	if err != nil {
		m.state = StateAddressValid
		m.lastErr = err.Error()
		return nil, err
	}
	m.order = order
	m.state = StateOrderCreated
	return order, nil
}

// InitiatePayment requests a payment session for the created order. Choosing
// a different provider later invalidates the previous session before the new
// one is requested; one order never holds two sessions. On failure the
// machine returns to AddressValid with the order retained, so the user can
// retry payment without re-entering the address or recreating the order.
func (m *Machine) InitiatePayment(ctx context.Context, provider domain.Provider) (*domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.order == nil {
		return nil, ErrNoOrder
	}
	if m.state != StateOrderCreated && m.state != StatePaymentPending && m.state != StateAddressValid {
		return nil, ErrIllegalTransition
	}

	m.session = nil
	m.provider = provider
	m.state = StatePaymentInitiating

	session, err := m.api.CreatePayment(ctx, m.creds(ctx), m.order.ID, provider)
	if err != nil {
		m.state = StateAddressValid
		m.lastErr = err.Error()
		return nil, err
	}
	m.session = session
	m.state = StatePaymentPending
	return session, nil
}

// Complete marks the attempt paid. Only valid while payment is pending.
func (m *Machine) Complete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePaymentPending {
		return ErrIllegalTransition
	}
	m.state = StateCompleted
	m.session = nil
	return nil
}

// Cancel handles the hosted-page cancel return: back to Editing with all
// entered data discarded. The order remains pending server-side; the user
// may restart checkout or abandon it.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateEditing
	m.address = domain.Address{}
	m.email = ""
	m.notes = ""
	m.order = nil
	m.session = nil
	m.provider = ""
}
