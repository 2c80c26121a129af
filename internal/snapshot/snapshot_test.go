// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/app/index.html#top", nil)
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type": {"text/html"},
			"Connection":   {"keep-alive"},
		},
		Body:    io.NopCloser(strings.NewReader("<html></html>")),
		Request: req,
	}

	s, err := FromResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/app/index.html", s.URL)
	assert.Equal(t, http.MethodGet, s.Method)
	assert.Equal(t, "<html></html>", string(s.Body))
	assert.Equal(t, "text/html", s.Header.Get("Content-Type"))
	assert.Empty(t, s.Header.Get("Connection"))
	assert.False(t, s.Captured.IsZero())
}

func TestOK(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{304, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New("http://x/", tt.status, nil, nil).OK(), "status %d", tt.status)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := New("http://x/a", 200, http.Header{"X-A": {"1"}}, []byte("body"))
	c := orig.Clone()

	c.Body[0] = 'B'
	c.Header.Set("X-A", "2")

	assert.Equal(t, "body", string(orig.Body))
	assert.Equal(t, "1", orig.Header.Get("X-A"))
	assert.Nil(t, (*Snapshot)(nil).Clone())
}

func TestEncodeDecode(t *testing.T) {
	orig := New("http://x/a", 201, http.Header{"Content-Type": {"font/woff2"}}, []byte{0, 1, 2, 255})

	b, err := orig.Encode()
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, orig.URL, got.URL)
	assert.Equal(t, orig.Status, got.Status)
	assert.Equal(t, orig.Body, got.Body)
	assert.Equal(t, "font/woff2", got.Header.Get("Content-Type"))
	assert.True(t, orig.Captured.Equal(got.Captured))

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}

func TestWriteTo(t *testing.T) {
	s := New("http://x/a", http.StatusAccepted, http.Header{"X-Cache": {"hit"}}, []byte("hello"))
	rec := httptest.NewRecorder()

	require.NoError(t, s.WriteTo(rec))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
}

func TestKey(t *testing.T) {
	u, _ := url.Parse("https://fonts.gstatic.com/s/roboto.woff2?v=1#frag")
	assert.Equal(t, "https://fonts.gstatic.com/s/roboto.woff2?v=1", Key(u))
	assert.Equal(t, "", Key(nil))
}
