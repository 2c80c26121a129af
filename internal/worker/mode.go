// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"net/http"
	"strings"
)

// Mode is the request mode in Fetch terms.
type Mode string

const (
	ModeNavigate   Mode = "navigate"
	ModeSameOrigin Mode = "same-origin"
	ModeNoCORS     Mode = "no-cors"
	ModeCORS       Mode = "cors"
	ModeWebSocket  Mode = "websocket"
)

// ModeOf derives the mode from Fetch Metadata. Clients that do not send
// Sec-Fetch-Mode are treated as navigating when they GET with HTML as the
// preferred type.
func ModeOf(r *http.Request) Mode {
	if m := strings.TrimSpace(r.Header.Get("Sec-Fetch-Mode")); m != "" {
		return Mode(strings.ToLower(m))
	}
	if r.Method == http.MethodGet && strings.HasPrefix(r.Header.Get("Accept"), "text/html") {
		return ModeNavigate
	}
	return ModeNoCORS
}
