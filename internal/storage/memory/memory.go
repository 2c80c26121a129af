// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package memory is a process-local storage backend.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
)

// Storage keeps every namespace in memory.
type Storage struct {
	mu     sync.Mutex
	order  []string
	byName map[string]*Namespace
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{byName: make(map[string]*Namespace)}
}

func (s *Storage) Open(ctx context.Context, name string) (storage.Namespace, error) {
	if err := storage.CheckName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.byName[name]; ok {
		return ns, nil
	}
	ns := &Namespace{name: name, entries: make(map[string]*snapshot.Snapshot)}
	s.byName[name] = ns
	s.order = append(s.order, name)
	return ns, nil
}

func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byName[name]
	return ok, nil
}

func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; !ok {
		return false, nil
	}
	delete(s.byName, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return true, nil
}

func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order), nil
}

// Namespace is a single in-memory namespace.
type Namespace struct {
	name    string
	mu      sync.RWMutex
	order   []string
	entries map[string]*snapshot.Snapshot
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) Match(ctx context.Context, key string) (*snapshot.Snapshot, bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s, ok := n.entries[key]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (n *Namespace) Put(ctx context.Context, key string, s *snapshot.Snapshot) error {
	if err := storage.CheckPut(key, s); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.entries[key]; !ok {
		n.order = append(n.order, key)
	}
	n.entries[key] = s.Clone()
	return nil
}

func (n *Namespace) Delete(ctx context.Context, key string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.entries[key]; !ok {
		return false, nil
	}
	delete(n.entries, key)
	n.order = slices.DeleteFunc(n.order, func(k string) bool { return k == key })
	return true, nil
}

func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.order), nil
}
