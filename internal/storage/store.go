// Package storage provides the durable client-side key/value store the
// storefront keeps its session handle and bearer token in. The interface is
// deliberately tiny so deployments can pick a file-backed store, a shared
// redis store, or plain memory when persistence is unavailable.
package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
