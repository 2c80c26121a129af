// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/staranto/swcache/internal/snapshot"
)

func TestDocument(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}, "Date": {"today"}}
	doc, err := Document(snapshot.New("http://a/x", 200, h, []byte(`{"v":1}`)))
	require.NoError(t, err)

	r := gjson.ParseBytes(doc)
	assert.Equal(t, int64(200), r.Get("status").Int())
	assert.Equal(t, "application/json", r.Get("headers.Content-Type").String())
	assert.False(t, r.Get("headers.Date").Exists())
	assert.Equal(t, int64(1), r.Get("body.v").Int())

	doc, err = Document(snapshot.New("http://a/x", 200, nil, []byte("<html>")))
	require.NoError(t, err)
	assert.Equal(t, "<html>", gjson.GetBytes(doc, "body").String())
}

func TestDiffIdentical(t *testing.T) {
	a := snapshot.New("http://a/x", 200, nil, []byte(`{"v":1}`))
	b := a.Clone()
	b.Header = http.Header{"Date": {"later"}}

	var buf bytes.Buffer
	changed, err := Diff(&buf, a, b, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, buf.String())
}

func TestDiffChanged(t *testing.T) {
	a := snapshot.New("http://a/x", 200, nil, []byte(`{"v":1,"name":"old"}`))
	b := snapshot.New("http://a/x", 200, nil, []byte(`{"v":2,"name":"old"}`))

	var buf bytes.Buffer
	changed, err := Diff(&buf, a, b, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Regexp(t, `(?m)^-\s+"v": 1`, buf.String())
	assert.Regexp(t, `(?m)^\+\s+"v": 2`, buf.String())
}

func TestDiffStatus(t *testing.T) {
	a := snapshot.New("http://a/x", 200, nil, []byte("same"))
	b := snapshot.New("http://a/x", 404, nil, []byte("same"))

	var buf bytes.Buffer
	changed, err := Diff(&buf, a, b, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, buf.String(), "404")
}

func TestDiffJSONRejectsNonObjects(t *testing.T) {
	_, err := DiffJSON(&bytes.Buffer{}, []byte(`[1]`), []byte(`{}`), false)
	assert.Error(t, err)
}
