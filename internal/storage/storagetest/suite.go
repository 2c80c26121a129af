// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package storagetest holds the behavior suite every storage backend must
// pass.
package storagetest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) storage.Storage

// Run executes the full suite against backends produced by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("OpenCreatesOnce", func(t *testing.T) { testOpenCreatesOnce(t, newStorage(t)) })
	t.Run("KeysInCreationOrder", func(t *testing.T) { testKeysInCreationOrder(t, newStorage(t)) })
	t.Run("PutMatchOverwrite", func(t *testing.T) { testPutMatchOverwrite(t, newStorage(t)) })
	t.Run("MatchReturnsCopy", func(t *testing.T) { testMatchReturnsCopy(t, newStorage(t)) })
	t.Run("DeleteNamespace", func(t *testing.T) { testDeleteNamespace(t, newStorage(t)) })
	t.Run("DeleteEntry", func(t *testing.T) { testDeleteEntry(t, newStorage(t)) })
	t.Run("PutRules", func(t *testing.T) { testPutRules(t, newStorage(t)) })
	t.Run("MatchAll", func(t *testing.T) { testMatchAll(t, newStorage(t)) })
	t.Run("EmptyName", func(t *testing.T) { testEmptyName(t, newStorage(t)) })
}

func testOpenCreatesOnce(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	ok, err := st.Has(ctx, "precache-v1")
	require.NoError(t, err)
	assert.False(t, ok)

	a, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)
	assert.Equal(t, "precache-v1", a.Name())

	require.NoError(t, a.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, []byte("a"))))

	// A second open sees the same data.
	b, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)
	_, hit, err := b.Match(ctx, "http://x/a")
	require.NoError(t, err)
	assert.True(t, hit)

	ok, err = st.Has(ctx, "precache-v1")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"precache-v1"}, names)
}

func testKeysInCreationOrder(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	for _, name := range []string{"precache-b", "fontcache-b", "other", "precache-a"} {
		_, err := st.Open(ctx, name)
		require.NoError(t, err)
	}

	names, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"precache-b", "fontcache-b", "other", "precache-a"}, names)
}

func testPutMatchOverwrite(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ns, err := st.Open(ctx, "fontcache-v1")
	require.NoError(t, err)

	key := "https://fonts.gstatic.com/s/a.woff2"

	_, hit, err := ns.Match(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)

	first := snapshot.New(key, 200, http.Header{"Content-Type": {"font/woff2"}}, []byte("one"))
	require.NoError(t, ns.Put(ctx, key, first))

	got, hit, err := ns.Match(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "one", string(got.Body))
	assert.Equal(t, 200, got.Status)
	assert.Equal(t, "font/woff2", got.Header.Get("Content-Type"))

	require.NoError(t, ns.Put(ctx, key, snapshot.New(key, 200, nil, []byte("two"))))
	got, hit, err = ns.Match(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "two", string(got.Body))

	keys, err := ns.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func testMatchReturnsCopy(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ns, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)

	orig := snapshot.New("http://x/a", 200, nil, []byte("abc"))
	require.NoError(t, ns.Put(ctx, "http://x/a", orig))
	orig.Body[0] = 'z'

	got, _, err := ns.Match(ctx, "http://x/a")
	require.NoError(t, err)
	got.Body[1] = 'z'

	again, _, err := ns.Match(ctx, "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Body))
}

func testDeleteNamespace(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ns, err := st.Open(ctx, "precache-old")
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, []byte("a"))))

	_, err = st.Open(ctx, "precache-new")
	require.NoError(t, err)

	deleted, err := st.Delete(ctx, "precache-old")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = st.Delete(ctx, "precache-old")
	require.NoError(t, err)
	assert.False(t, deleted)

	names, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"precache-new"}, names)

	// Reopening yields an empty namespace.
	ns, err = st.Open(ctx, "precache-old")
	require.NoError(t, err)
	keys, err := ns.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testDeleteEntry(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ns, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, nil)))

	deleted, err := ns.Delete(ctx, "http://x/a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = ns.Delete(ctx, "http://x/a")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testPutRules(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	ns, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)

	post := snapshot.New("http://x/p", 200, nil, nil)
	post.Method = http.MethodPost
	assert.True(t, errors.Is(ns.Put(ctx, "http://x/p", post), storage.ErrNotCacheable))

	partial := snapshot.New("http://x/r", http.StatusPartialContent, nil, nil)
	assert.True(t, errors.Is(ns.Put(ctx, "http://x/r", partial), storage.ErrNotCacheable))

	vary := snapshot.New("http://x/v", 200, http.Header{"Vary": {"*"}}, nil)
	assert.True(t, errors.Is(ns.Put(ctx, "http://x/v", vary), storage.ErrNotCacheable))

	keys, err := ns.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testMatchAll(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	first, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)
	second, err := st.Open(ctx, "fontcache-v1")
	require.NoError(t, err)

	require.NoError(t, second.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, []byte("second"))))
	got, ok, err := storage.MatchAll(ctx, st, "http://x/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(got.Body))

	require.NoError(t, first.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, []byte("first"))))
	got, ok, err = storage.MatchAll(ctx, st, "http://x/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", string(got.Body))

	_, ok, err = storage.MatchAll(ctx, st, "http://x/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testEmptyName(t *testing.T, st storage.Storage) {
	_, err := st.Open(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidName)
}
