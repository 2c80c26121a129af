// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package disk stores namespaces as directories of zstd-compressed entry
// files beneath a base cache directory.
//
// Layout:
//
//	<base>/namespaces.json        ordered list of namespace names
//	<base>/<xxhash(name)>/keys.json  ordered list of entry keys
//	<base>/<xxhash(name)>/<xxhash(key)>.zst
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/apex/log"
	"github.com/klauspost/compress/zstd"

	"github.com/staranto/swcache/internal/cacheutil"
	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
)

const (
	indexFile = "namespaces.json"
	keysFile  = "keys.json"
	entryExt  = ".zst"
)

// record is what lands on disk: the key is kept alongside the snapshot since
// a snapshot may be stored under a key other than its own URL.
type record struct {
	Key      string             `json:"key"`
	Snapshot *snapshot.Snapshot `json:"snapshot"`
}

// Storage is a directory-backed storage.Storage. One Storage should own a
// base directory at a time.
type Storage struct {
	base string

	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	open    map[string]*Namespace

	closeOnce sync.Once
	closeErr  error
}

// New opens (creating when needed) a disk storage rooted at base.
func New(base string) (*Storage, error) {
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Storage{
		base:    base,
		encoder: enc,
		decoder: dec,
		open:    make(map[string]*Namespace),
	}, nil
}

// Close releases the zstd codec.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		s.decoder.Close()
		s.closeErr = s.encoder.Close()
	})
	return s.closeErr
}

// Base is the root directory.
func (s *Storage) Base() string { return s.base }

func (s *Storage) Open(ctx context.Context, name string) (storage.Namespace, error) {
	if err := storage.CheckName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.open[name]; ok {
		return ns, nil
	}

	names, err := s.readIndex()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.base, cacheutil.EncodeKey(name))
	if !slices.Contains(names, name) {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
			return nil, fmt.Errorf("failed to create namespace %s: %w", name, err)
		}
		if err := s.writeIndex(append(names, name)); err != nil {
			return nil, err
		}
		log.Debugf("created namespace %s at %s", name, dir)
	}

	ns := &Namespace{name: name, dir: dir, store: s}
	s.open[name] = ns
	return ns, nil
}

func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names, err := s.readIndex()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.readIndex()
	if err != nil {
		return false, err
	}
	if !slices.Contains(names, name) {
		return false, nil
	}

	// Drop from the index first so a failed RemoveAll leaves garbage, not a
	// half-populated namespace.
	names = slices.DeleteFunc(names, func(n string) bool { return n == name })
	if err := s.writeIndex(names); err != nil {
		return false, err
	}
	delete(s.open, name)

	dir := filepath.Join(s.base, cacheutil.EncodeKey(name))
	if err := os.RemoveAll(dir); err != nil {
		log.WithError(err).Warnf("failed to remove namespace directory %s", dir)
	}
	return true, nil
}

func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

func (s *Storage) readIndex() ([]string, error) {
	return readList(filepath.Join(s.base, indexFile))
}

func (s *Storage) writeIndex(names []string) error {
	return writeList(filepath.Join(s.base, indexFile), names)
}

// Namespace is one directory of entries.
type Namespace struct {
	name  string
	dir   string
	store *Storage

	mu sync.RWMutex
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) entryPath(key string) string {
	return filepath.Join(n.dir, cacheutil.EncodeKey(key)+entryExt)
}

func (n *Namespace) Match(ctx context.Context, key string) (*snapshot.Snapshot, bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	compressed, err := os.ReadFile(n.entryPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	raw, err := n.store.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress cache entry: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	// Two keys hashing to the same file name is a miss for the loser.
	if rec.Key != key || rec.Snapshot == nil {
		return nil, false, nil
	}
	if rec.Snapshot.Header == nil {
		rec.Snapshot.Header = map[string][]string{}
	}
	return rec.Snapshot, true, nil
}

func (n *Namespace) Put(ctx context.Context, key string, s *snapshot.Snapshot) error {
	if err := storage.CheckPut(key, s); err != nil {
		return err
	}

	raw, err := json.Marshal(record{Key: key, Snapshot: s})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	compressed := n.store.encoder.EncodeAll(raw, nil)

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := cacheutil.WriteAtomic(n.entryPath(key), compressed); err != nil {
		return err
	}

	keys, err := readList(filepath.Join(n.dir, keysFile))
	if err != nil {
		return err
	}
	if !slices.Contains(keys, key) {
		if err := writeList(filepath.Join(n.dir, keysFile), append(keys, key)); err != nil {
			return err
		}
	}
	return nil
}

func (n *Namespace) Delete(ctx context.Context, key string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	keys, err := readList(filepath.Join(n.dir, keysFile))
	if err != nil {
		return false, err
	}
	if !slices.Contains(keys, key) {
		return false, nil
	}
	if err := os.Remove(n.entryPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to remove cache entry: %w", err)
	}
	keys = slices.DeleteFunc(keys, func(k string) bool { return k == key })
	if err := writeList(filepath.Join(n.dir, keysFile), keys); err != nil {
		return false, err
	}
	return true, nil
}

func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return readList(filepath.Join(n.dir, keysFile))
}

func readList(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func writeList(path string, list []string) error {
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return cacheutil.WriteAtomic(path, b)
}
