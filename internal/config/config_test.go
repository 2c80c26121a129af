// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// use loads testdata/swcache.yaml through SWCACHE_CFG with lookups scoped to
// namespace, the way InitApp scopes them to the running command.
func use(t *testing.T, namespace string) {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", FileName))
	require.NoError(t, err)
	t.Setenv("SWCACHE_CFG", path)

	Config = Type{Namespace: namespace}
	_, err = Load()
	require.NoError(t, err)
	t.Cleanup(func() { Config = Type{} })
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadLocations(t *testing.T) {
	t.Cleanup(func() { Config = Type{} })
	fixture, err := filepath.Abs(filepath.Join("testdata", FileName))
	require.NoError(t, err)

	t.Run("explicit path wins", func(t *testing.T) {
		t.Setenv("SWCACHE_CFG", "/nonexistent/swcache.yaml")
		cfg, err := Load(fixture)
		require.NoError(t, err)
		assert.Equal(t, fixture, cfg.Source)
	})

	t.Run("SWCACHE_CFG", func(t *testing.T) {
		t.Setenv("SWCACHE_CFG", fixture)
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, fixture, cfg.Source)
		assert.Equal(t, "disk", cfg.Data["storage"])
	})

	t.Run("SWCACHE_CFG missing", func(t *testing.T) {
		t.Setenv("SWCACHE_CFG", "/nonexistent/swcache.yaml")
		_, err := Load()
		assert.ErrorContains(t, err, "config file not found")
	})

	t.Run("SWCACHE_CFG is a directory", func(t *testing.T) {
		t.Setenv("SWCACHE_CFG", t.TempDir())
		_, err := Load()
		assert.ErrorContains(t, err, "points to a directory")
	})

	t.Run("XDG_CONFIG_HOME", func(t *testing.T) {
		unsetenv(t, "SWCACHE_CFG", "APPDATA")
		xdg := t.TempDir()
		data, err := os.ReadFile(fixture)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(xdg, FileName), data, 0o600))
		t.Setenv("XDG_CONFIG_HOME", xdg)
		t.Setenv("HOME", t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(xdg, FileName), cfg.Source)
	})

	t.Run("nothing found", func(t *testing.T) {
		unsetenv(t, "SWCACHE_CFG", "APPDATA")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("HOME", t.TempDir())
		_, err := Load()
		assert.ErrorContains(t, err, "no config file found")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "invalid.yaml"))
		assert.ErrorContains(t, err, "failed to parse")
	})
}

func TestCommandNamespaceFirst(t *testing.T) {
	tests := []struct {
		namespace string
		key       string
		want      string
		wantErr   bool
	}{
		{"serve", "storage", "sqlite", false},
		{"ls", "storage", "disk", false},
		{"", "storage", "disk", false},
		{"serve", "listen", ":9000", false},
		{"ls", "listen", "", true},
		{"ls", "output", "json", false},
		{"install", "cache-dir", "/var/cache/swcache", false},
	}
	for _, tt := range tests {
		t.Run(tt.namespace+"/"+tt.key, func(t *testing.T) {
			use(t, tt.namespace)
			got, err := GetString(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetStringDefault(t *testing.T) {
	use(t, "ls")

	got, err := GetString("upstream", "http://localhost:3000")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", got)

	_, err = GetString("timeout")
	assert.ErrorContains(t, err, "not a string")
}

func TestGetInt(t *testing.T) {
	use(t, "")

	got, err := GetInt("timeout")
	require.NoError(t, err)
	assert.Equal(t, 45, got)

	got, err = GetInt("ratio")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = GetInt("retries", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = GetInt("storage")
	assert.ErrorContains(t, err, "not an int")
}

func TestFontOriginsShapes(t *testing.T) {
	tests := []struct {
		namespace string
		want      []string
		wantErr   string
	}{
		{"serve", []string{"https://fonts.googleapis.com", "https://fonts.gstatic.com"}, ""},
		// A scalar is a one-element list.
		{"ls", []string{"https://fonts.example.com"}, ""},
		{"purge", nil, "is not a list"},
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			use(t, tt.namespace)
			got, err := GetStringSlice("font_origins", nil)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgumentSets(t *testing.T) {
	// Sets are looked up before InitApp scopes the config, and the bare key
	// still resolves once it has.
	for _, ns := range []string{"", "serve"} {
		t.Run("namespace "+ns, func(t *testing.T) {
			use(t, ns)

			got, err := GetStringSlice("serve.defaults", nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"--listen :9000", "--storage memory"}, got)

			got, err = GetStringSlice("serve.dev", nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"--scope http://localhost:5173/app/"}, got)

			got, err = GetStringSlice("serve.nope", nil)
			require.NoError(t, err)
			assert.Nil(t, got)

			_, err = GetStringSlice("serve.nope")
			assert.Error(t, err)

			_, err = GetStringSlice("serve.broken", nil)
			assert.ErrorContains(t, err, "not a list of strings")
		})
	}
}

func TestParseEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		unsetenv(t, "SWCACHE_LOG", "SWCACHE_CFG", "SWCACHE_CACHE_DIR", "SWCACHE_STORAGE")
		e, err := ParseEnv()
		require.NoError(t, err)
		assert.Equal(t, Env{LogLevel: "ERROR", Storage: "disk"}, e)
	})

	t.Run("set", func(t *testing.T) {
		t.Setenv("SWCACHE_LOG", "debug")
		t.Setenv("SWCACHE_CFG", "/etc/swcache.yaml")
		t.Setenv("SWCACHE_CACHE_DIR", "/tmp/swcache")
		t.Setenv("SWCACHE_STORAGE", "sqlite")
		e, err := ParseEnv()
		require.NoError(t, err)
		assert.Equal(t, Env{
			LogLevel: "debug",
			Config:   "/etc/swcache.yaml",
			CacheDir: "/tmp/swcache",
			Storage:  "sqlite",
		}, e)
	})
}
