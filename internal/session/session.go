// Package session owns the client's identity: the anonymous session handle
// that correlates a cart to this installation, and the optional bearer token
// of an authenticated user.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/revive-shop/commerce-core/internal/storage"
)

const (
	sessionKey = "cart_session_id"
	tokenKey   = "auth_token"

	handlePrefix = "sess_"
)

// Manager issues and persists the anonymous session handle. The handle is
// minted once, never rotated, and lives until storage is cleared by the user.
// When persistence is unavailable the manager degrades to an in-memory handle
// that does not survive a restart; cart continuity is lost but no error is
// raised.
type Manager struct {
	store storage.Store

	mu       sync.Mutex
	fallback string
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

// GetOrCreate returns the persisted session handle, minting one on first
// call. Idempotent: repeated calls return the same handle.
func (m *Manager) GetOrCreate(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fallback != "" {
		return m.fallback
	}

	handle, err := m.store.Get(ctx, sessionKey)
	if err == nil && strings.HasPrefix(handle, handlePrefix) {
		return handle
	}

	handle = handlePrefix + uuid.NewString()
	if errors.Is(err, storage.ErrKeyNotFound) || err == nil {
		if errSet := m.store.Set(ctx, sessionKey, handle); errSet == nil {
			return handle
		}
	}

	// Persistence unavailable: keep the handle for this process only.
	m.fallback = handle
	return handle
}

// TokenProvider reads and writes the bearer token. Tokens are read from
// storage on each use rather than cached, so a login or logout elsewhere is
// observed on the next operation.
type TokenProvider struct {
	store storage.Store
}

func NewTokenProvider(store storage.Store) *TokenProvider {
	return &TokenProvider{store: store}
}

// Get returns the stored token, or empty when none is present or storage is
// unavailable. Anonymous operation is always allowed.
func (p *TokenProvider) Get(ctx context.Context) string {
	token, err := p.store.Get(ctx, tokenKey)
	if err != nil {
		return ""
	}
	return token
}

func (p *TokenProvider) Set(ctx context.Context, token string) error {
	return p.store.Set(ctx, tokenKey, token)
}

func (p *TokenProvider) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, tokenKey)
}
