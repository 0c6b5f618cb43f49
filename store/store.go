// Package store defines the shared persistent key-value namespace the chat
// core runs against, and its backends. All cooperating clients observe the
// same store; it is the only channel between them.
package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when a key has never been written.
var ErrKeyNotFound = errors.New("store: key not found")

// UpdateFunc transforms the current value of a key. It receives nil when the
// key is absent. Returning an error aborts the update with nothing written.
type UpdateFunc func(old []byte) ([]byte, error)

// Store is a shared key-value namespace. Update is a serialized
// read-modify-write: two concurrent Updates of the same key never clobber
// each other, which is what makes multi-step mutations of the rooms and
// users collections safe without a transaction layer.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}
