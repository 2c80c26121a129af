// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/staranto/swcache/internal/snapshot"
)

var (
	// ErrNotCacheable is returned by Put for requests or responses that a
	// cache namespace refuses to hold.
	ErrNotCacheable = errors.New("not cacheable")

	// ErrInvalidName is returned for empty namespace names.
	ErrInvalidName = errors.New("invalid namespace name")
)

// Storage is the set of named cache namespaces available to a worker.
type Storage interface {
	// Open returns the namespace called name, creating it when absent.
	Open(ctx context.Context, name string) (Namespace, error)
	// Has reports whether a namespace called name exists.
	Has(ctx context.Context, name string) (bool, error)
	// Delete removes a namespace and every entry in it. It reports whether
	// anything was deleted.
	Delete(ctx context.Context, name string) (bool, error)
	// Keys lists namespace names in creation order.
	Keys(ctx context.Context) ([]string, error)
}

// Namespace maps request keys (see snapshot.Key) to snapshots. Put replaces
// an existing entry atomically.
type Namespace interface {
	Name() string
	// Match returns a copy of the stored snapshot, or ok=false on a miss.
	Match(ctx context.Context, key string) (s *snapshot.Snapshot, ok bool, err error)
	Put(ctx context.Context, key string, s *snapshot.Snapshot) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// MatchAll searches every namespace in creation order and returns the first
// hit.
func MatchAll(ctx context.Context, st Storage, key string) (*snapshot.Snapshot, bool, error) {
	names, err := st.Keys(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, name := range names {
		ns, err := st.Open(ctx, name)
		if err != nil {
			return nil, false, err
		}
		s, ok, err := ns.Match(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("failed to match %s in %s: %w", key, name, err)
		}
		if ok {
			return s, true, nil
		}
	}
	return nil, false, nil
}

// CheckPut enforces the rules every backend applies before storing: GET
// only, no partial content, no "Vary: *".
func CheckPut(key string, s *snapshot.Snapshot) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrNotCacheable)
	}
	if s == nil {
		return fmt.Errorf("%w: nil response", ErrNotCacheable)
	}
	if s.Method != "" && s.Method != http.MethodGet {
		return fmt.Errorf("%w: method %s", ErrNotCacheable, s.Method)
	}
	if s.Status == http.StatusPartialContent {
		return fmt.Errorf("%w: partial content", ErrNotCacheable)
	}
	for _, v := range s.Header.Values("Vary") {
		if v == "*" {
			return fmt.Errorf("%w: Vary: *", ErrNotCacheable)
		}
	}
	return nil
}

// CheckName validates a namespace name.
func CheckName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	return nil
}
