// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/staranto/swcache/internal/worker"
)

// Kind is the routing class of a request.
type Kind int

const (
	// KindPassthrough requests are not intercepted.
	KindPassthrough Kind = iota
	// KindNavigation requests go network-first with a cached document
	// fallback.
	KindNavigation
	// KindFont requests are stale-while-revalidate against the font
	// namespace.
	KindFont
	// KindPrecache requests are cache-first without backfill.
	KindPrecache
)

func (k Kind) String() string {
	switch k {
	case KindNavigation:
		return "navigation"
	case KindFont:
		return "font"
	case KindPrecache:
		return "precache"
	default:
		return "passthrough"
	}
}

// Strategy is a one-line description of how a kind is served.
func (k Kind) Strategy() string {
	switch k {
	case KindNavigation:
		return "network-first, cache document, fall back to cached document"
	case KindFont:
		return "stale-while-revalidate"
	case KindPrecache:
		return "cache-first, no backfill"
	default:
		return "network, not cached"
	}
}

// DefaultFontOrigins are the font provider origins served
// stale-while-revalidate.
var DefaultFontOrigins = []string{
	"https://fonts.googleapis.com",
	"https://fonts.gstatic.com",
}

// Classify places r in exactly one class. The checks run in order and the
// first match wins. Only request metadata is consulted.
func (e *Engine) Classify(r *http.Request) Kind {
	switch {
	case worker.ModeOf(r) == worker.ModeNavigate:
		return KindNavigation
	case e.isFontOrigin(r.URL):
		return KindFont
	case e.manifest.Contains(r.URL):
		return KindPrecache
	default:
		return KindPassthrough
	}
}

func (e *Engine) isFontOrigin(u *url.URL) bool {
	o := Origin(u)
	for _, f := range e.fontOrigins {
		if o == f {
			return true
		}
	}
	return false
}

// Origin serializes the scheme, host and non-default port of u.
func Origin(u *url.URL) string {
	if u == nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}
