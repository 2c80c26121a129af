// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/staranto/swcache/internal/policy"
)

// pages remembers the latest client that navigated on each origin. The
// client cookie is scoped to the page's host, so subresources fetched from
// other hosts arrive without it and are attributed through Origin or Referer.
type pages struct {
	mu       sync.Mutex
	byOrigin map[string]string
}

func newPages() *pages {
	return &pages{byOrigin: make(map[string]string)}
}

func (p *pages) remember(page *url.URL, id string) {
	o := policy.Origin(page)
	if o == "" || id == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byOrigin[o] = id
}

// lookup returns the client whose page issued r.
func (p *pages) lookup(r *http.Request) (string, bool) {
	o := initiator(r)
	if o == "" {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byOrigin[o]
	return id, ok
}

// initiator is the origin of the page that sent r, from the Origin header or
// else the Referer.
func initiator(r *http.Request) string {
	for _, h := range []string{"Origin", "Referer"} {
		raw := r.Header.Get(h)
		if raw == "" || raw == "null" {
			continue
		}
		if u, err := url.Parse(raw); err == nil {
			if o := policy.Origin(u); o != "" {
				return o
			}
		}
	}
	return ""
}
