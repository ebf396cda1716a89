// Package storage defines the accepted-flag contracts for checker state.
package storage

import (
	"context"
	"errors"
)

// ErrStoreClosed indicates the store was used after Close.
var ErrStoreClosed = errors.New("store is closed")

// AcceptedFlagStore records flags that have been accepted at least once.
//
// Membership is append-only: a flag added once stays present for the
// lifetime of the store.
type AcceptedFlagStore interface {
	Contains(ctx context.Context, flag string) (bool, error)
	// Add records flag as accepted. Adding an existing flag is a no-op.
	Add(ctx context.Context, flag string) error
	Count(ctx context.Context) (int, error)
	Close() error
}
