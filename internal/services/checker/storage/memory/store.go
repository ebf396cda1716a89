// Package memory provides an in-process accepted-flag store.
package memory

import (
	"context"
	"sync"

	"github.com/louisbranch/flagchecker/internal/services/checker/storage"
)

// Store keeps accepted flags in a mutex-guarded set.
type Store struct {
	mu     sync.RWMutex
	flags  map[string]struct{}
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{flags: make(map[string]struct{})}
}

// Contains reports whether flag was accepted before.
func (s *Store) Contains(ctx context.Context, flag string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, storage.ErrStoreClosed
	}
	_, ok := s.flags[flag]
	return ok, nil
}

// Add records flag as accepted.
func (s *Store) Add(ctx context.Context, flag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStoreClosed
	}
	s.flags[flag] = struct{}{}
	return nil
}

// Count returns the number of accepted flags.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrStoreClosed
	}
	return len(s.flags), nil
}

// Close marks the store unusable. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ storage.AcceptedFlagStore = (*Store)(nil)
