// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package fetch performs the single network attempt every strategy relies
// on. A transport failure is an error; an HTTP error status is a response.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apex/log"

	"github.com/staranto/swcache/internal/snapshot"
)

// Fetcher goes to the network exactly once per call.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*snapshot.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *http.Request) (*snapshot.Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*snapshot.Snapshot, error) {
	return f(ctx, req)
}

// Client is the net/http Fetcher.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client with the given overall request timeout. A zero
// timeout means none.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Fetch sends a copy of req bound to ctx and buffers the response.
func (c *Client) Fetch(ctx context.Context, req *http.Request) (*snapshot.Snapshot, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	out := req.Clone(ctx)
	// Inbound server requests carry RequestURI, which clients must not set.
	out.RequestURI = ""
	if out.URL.Scheme == "" || out.URL.Host == "" {
		return nil, fmt.Errorf("fetch %s: request URL must be absolute", out.URL)
	}
	out.Host = ""

	log.Debugf("fetch %s %s", out.Method, out.URL)
	resp, err := hc.Do(out)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", out.URL, err)
	}

	s, err := snapshot.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", out.URL, err)
	}
	// Key by what the caller asked for, not by where redirects ended up.
	s.URL = snapshot.RequestKey(req)
	s.Method = req.Method
	return s, nil
}

// Get builds a GET request for rawURL and fetches it.
func Get(ctx context.Context, f Fetcher, rawURL string) (*snapshot.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return f.Fetch(ctx, req)
}
