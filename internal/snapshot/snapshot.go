// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Snapshot is a fully buffered response together with the identity of the
// request that produced it.
type Snapshot struct {
	URL      string      `json:"url"`
	Method   string      `json:"method"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	Captured time.Time   `json:"captured"`
}

// hopHeaders are connection-scoped and never stored or replayed.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// FromResponse drains and closes resp.Body and captures the result.
func FromResponse(resp *http.Response) (*Snapshot, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	s := &Snapshot{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		Captured: time.Now().UTC(),
	}
	if s.Header == nil {
		s.Header = http.Header{}
	}
	for _, h := range hopHeaders {
		s.Header.Del(h)
	}

	if resp.Request != nil {
		s.Method = resp.Request.Method
		s.URL = Key(resp.Request.URL)
	}

	return s, nil
}

// New builds a snapshot from parts. Mostly useful in tests and for synthetic
// entries written by tooling.
func New(rawURL string, status int, header http.Header, body []byte) *Snapshot {
	if header == nil {
		header = http.Header{}
	}
	return &Snapshot{
		URL:      rawURL,
		Method:   http.MethodGet,
		Status:   status,
		Header:   header,
		Body:     body,
		Captured: time.Now().UTC(),
	}
}

// OK reports whether the status is in the 2xx range.
func (s *Snapshot) OK() bool {
	return s.Status >= 200 && s.Status <= 299
}

// Clone returns a deep copy. Callers that hand a snapshot to a store and to
// a client at the same time must give each its own copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Header = s.Header.Clone()
	c.Body = bytes.Clone(s.Body)
	return &c
}

// Size is the stored body size in bytes.
func (s *Snapshot) Size() int64 {
	return int64(len(s.Body))
}

// WriteTo replays the snapshot onto w.
func (s *Snapshot) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for k, vv := range s.Header {
		dst[k] = append([]string(nil), vv...)
	}
	dst.Set("Content-Length", strconv.Itoa(len(s.Body)))
	w.WriteHeader(s.Status)
	if _, err := w.Write(s.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}

// Encode serializes the snapshot for storage backends.
func (s *Snapshot) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return b, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Header == nil {
		s.Header = http.Header{}
	}
	return &s, nil
}

// Key is the cache identity of a request URL: the absolute URL without its
// fragment.
func Key(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

// RequestKey is Key for an *http.Request.
func RequestKey(r *http.Request) string {
	return Key(r.URL)
}
