// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/swcache/internal/config"
)

const sets = `
serve:
  defaults:
    - --listen :9000
  dev:
    - --scope http://localhost:5173/app/
    - --storage memory
`

func loadSets(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(sets), 0o600))
	t.Setenv("SWCACHE_CFG", path)
	_, err := config.Load()
	require.NoError(t, err)
	t.Cleanup(func() { config.Config = config.Type{} })
}

func TestMangleArguments(t *testing.T) {
	loadSets(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "defaults after command",
			args: []string{"swcache", "serve", "-V", "v1"},
			want: []string{"swcache", "serve", "--listen", ":9000", "-V", "v1"},
		},
		{
			name: "named set replaces marker",
			args: []string{"swcache", "serve", "-V", "v1", "@dev", "--listen", ":1"},
			want: []string{"swcache", "serve", "-V", "v1",
				"--scope", "http://localhost:5173/app/", "--storage", "memory", "--listen", ":1"},
		},
		{
			name: "unknown set is dropped",
			args: []string{"swcache", "serve", "@nope"},
			want: []string{"swcache", "serve"},
		},
		{
			name: "command without sets",
			args: []string{"swcache", "ls", "-o", "json"},
			want: []string{"swcache", "ls", "-o", "json"},
		},
		{
			name: "help",
			args: []string{"swcache", "serve", "-V", "v1", "-h"},
			want: []string{"swcache", "serve", "--help"},
		},
		{
			name: "root flag",
			args: []string{"swcache", "--version"},
			want: []string{"swcache", "--version"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mangleArguments(tt.args))
		})
	}
}

func TestStorageArg(t *testing.T) {
	assert.Equal(t, "disk", storageArg([]string{"swcache", "ls"}, "disk"))
	assert.Equal(t, "memory", storageArg([]string{"swcache", "ls", "--storage", "memory"}, "disk"))
	assert.Equal(t, "s3", storageArg([]string{"swcache", "ls", "--storage=s3"}, "disk"))
	assert.Equal(t, "sqlite", storageArg([]string{"swcache", "ls", "--storage"}, "sqlite"))
}

func TestEnsureCacheDir(t *testing.T) {
	t.Run("disk creates the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "cache")
		require.NoError(t, ensureCacheDir([]string{"swcache", "ls"}, config.Env{CacheDir: dir, Storage: "disk"}))
		assert.DirExists(t, dir)
	})

	for _, backend := range []string{"memory", "s3"} {
		t.Run(backend+" leaves it alone", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "cache")
			args := []string{"swcache", "ls", "--storage", backend}
			require.NoError(t, ensureCacheDir(args, config.Env{CacheDir: dir, Storage: "disk"}))
			assert.NoDirExists(t, dir)
		})
	}

	t.Run("failure is reported", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		args := []string{"swcache", "ls", "--storage=sqlite"}
		assert.Error(t, ensureCacheDir(args, config.Env{CacheDir: filepath.Join(file, "cache")}))
	})
}
