// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/swcache/internal/snapshot"
)

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hello"))
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	ctx := context.Background()

	s, err := Get(ctx, c, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, s.Status)
	assert.Equal(t, "hello", string(s.Body))
	assert.Equal(t, srv.URL+"/ok", s.URL)

	// Redirects are followed but the snapshot keeps the requested URL.
	s, err = Get(ctx, c, srv.URL+"/moved")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(s.Body))
	assert.Equal(t, srv.URL+"/moved", s.URL)

	// An HTTP error is a response, not a failure.
	s, err = Get(ctx, c, srv.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, s.Status)
	assert.False(t, s.OK())
}

func TestClientFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Get(context.Background(), NewClient(time.Second), url+"/gone")
	assert.Error(t, err)
}

func TestClientFetchServerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Test")))
	}))
	defer srv.Close()

	// Inbound requests have RequestURI set; Fetch must cope.
	in := httptest.NewRequest(http.MethodGet, srv.URL+"/echo", nil)
	in.Header.Set("X-Test", "passed")

	s, err := NewClient(0).Fetch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "passed", string(s.Body))
}

func TestClientFetchRelativeURL(t *testing.T) {
	in := httptest.NewRequest(http.MethodGet, "/relative", nil)
	in.URL.Host = ""
	in.URL.Scheme = ""
	_, err := NewClient(0).Fetch(context.Background(), in)
	assert.Error(t, err)
}

func TestFetcherFunc(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, req *http.Request) (*snapshot.Snapshot, error) {
		return snapshot.New(req.URL.String(), 204, nil, nil), nil
	})
	s, err := Get(context.Background(), f, "http://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, 204, s.Status)
}
