// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
	"github.com/staranto/swcache/internal/storage/storagetest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestDeleteCascadesEntries(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	ns, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, []byte("a"))))

	_, err = st.Delete(ctx, "precache-v1")
	require.NoError(t, err)

	var n int
	require.NoError(t, st.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries`).Scan(&n))
	assert.Zero(t, n)

	// The stale handle can no longer write.
	assert.Error(t, ns.Put(ctx, "http://x/b", snapshot.New("http://x/b", 200, nil, nil)))
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := Open(path)
	require.NoError(t, err)
	ns, err := first.Open(ctx, "fontcache-v1")
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "https://fonts.gstatic.com/a", snapshot.New("https://fonts.gstatic.com/a", 200, nil, []byte("font"))))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	ns, err = second.Open(ctx, "fontcache-v1")
	require.NoError(t, err)
	got, ok, err := ns.Match(ctx, "https://fonts.gstatic.com/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "font", string(got.Body))
}
