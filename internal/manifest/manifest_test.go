// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestDefault(t *testing.T) {
	m := Default("/app/")
	entries := m.Entries()

	require.Len(t, entries, 12)
	assert.Equal(t, "/app/index.html", entries[0])
	assert.Equal(t, "/app/assets/favicon-512.png", entries[8])
	assert.Equal(t, []string{OpentypeURL, JSZipURL, AvatarURL}, entries[9:])
}

func TestBasePath(t *testing.T) {
	tests := map[string]string{
		"":       "",
		"/":      "",
		"app":    "/app",
		"/app/":  "/app",
		" /a/b ": "/a/b",
	}
	for in, want := range tests {
		assert.Equal(t, want, BasePath(in), "input %q", in)
	}
}

func TestNewDeduplicates(t *testing.T) {
	m := New("/a", "", "/b", "/a", "  ")
	assert.Equal(t, []string{"/a", "/b"}, m.Entries())
}

func TestContains(t *testing.T) {
	m := Default("/app")

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"local asset by path", "http://localhost:8080/app/version.js", true},
		{"local asset with fragment", "http://localhost:8080/app/version.js#x", true},
		{"local asset other origin path matches", "http://cdn.example.com/app/version.js", true},
		{"third party by full URL", JSZipURL, true},
		{"third party with query differs", JSZipURL + "?v=2", false},
		{"unlisted path", "http://localhost:8080/app/api/data", false},
		{"unrelated api", "https://api.github.com/users/x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Contains(mustURL(t, tt.url)))
		})
	}
	assert.False(t, m.Contains(nil))
}

func TestContainsComparesEncodedPath(t *testing.T) {
	m := New("/app/fonts/open%20sans.woff2", "/app/a b.js")

	assert.True(t, m.Contains(mustURL(t, "http://localhost:8080/app/fonts/open%20sans.woff2")))
	assert.True(t, m.Contains(mustURL(t, "http://other.test/app/fonts/open%20sans.woff2#x")))
	// Entries are compared in encoded form, so a decoded entry never matches.
	assert.False(t, m.Contains(mustURL(t, "http://localhost:8080/app/a%20b.js")))
}

func TestResolve(t *testing.T) {
	m := New("/app/index.html", AvatarURL)
	got, err := m.Resolve(mustURL(t, "http://localhost:8080/app/"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:8080/app/index.html", AvatarURL}, got)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []string
		wantErr bool
	}{
		{"strings", `["/a", "/b"]`, []string{"/a", "/b"}, false},
		{"objects", `[{"url": "/a", "revision": "1"}, {"url": "/b"}]`, []string{"/a", "/b"}, false},
		{"wrapped", `{"urls": ["/a", {"url": "/b"}]}`, []string{"/a", "/b"}, false},
		{"invalid json", `[`, nil, true},
		{"not a list", `{"files": []}`, nil, true},
		{"bad element", `[1]`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Entries())
		})
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "precache.json")
	require.NoError(t, os.WriteFile(p, []byte(`["/index.html"]`), 0o600))

	m, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"/index.html"}, m.Entries())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
