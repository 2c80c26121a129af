// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeOf(t *testing.T) {
	tests := []struct {
		name   string
		method string
		header map[string]string
		want   Mode
	}{
		{"fetch metadata navigate", http.MethodGet, map[string]string{"Sec-Fetch-Mode": "navigate"}, ModeNavigate},
		{"fetch metadata cors", http.MethodGet, map[string]string{"Sec-Fetch-Mode": "cors", "Accept": "text/html"}, ModeCORS},
		{"mixed case", http.MethodGet, map[string]string{"Sec-Fetch-Mode": "Navigate"}, ModeNavigate},
		{"legacy html get", http.MethodGet, map[string]string{"Accept": "text/html,application/xhtml+xml"}, ModeNavigate},
		{"legacy html post", http.MethodPost, map[string]string{"Accept": "text/html"}, ModeNoCORS},
		{"legacy image", http.MethodGet, map[string]string{"Accept": "image/png"}, ModeNoCORS},
		{"nothing", http.MethodGet, nil, ModeNoCORS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "http://app/", nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ModeOf(r))
		})
	}
}
