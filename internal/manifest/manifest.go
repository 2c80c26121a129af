// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
)

// External resources the page loads from third-party hosts.
const (
	OpentypeURL = "https://cdn.jsdelivr.net/npm/opentype.js@1.3.4/dist/opentype.min.js"
	JSZipURL    = "https://cdn.jsdelivr.net/npm/jszip@3.10.1/dist/jszip.min.js"
	AvatarURL   = "https://unavatar.io/github/mug-lab-3"
)

// DocumentPath is the scope-relative path of the application shell.
const DocumentPath = "/index.html"

// localAssets are the scope-relative paths of the page's own assets.
var localAssets = []string{
	DocumentPath,
	"/manifest.webmanifest",
	"/version.js",
	"/assets/favicon-32.png",
	"/assets/favicon-64.png",
	"/assets/favicon-128.png",
	"/assets/favicon-192.png",
	"/assets/favicon-256.png",
	"/assets/favicon-512.png",
}

// Manifest is an ordered, de-duplicated list of URLs. Entries are either
// absolute URLs or absolute paths on the application's origin.
type Manifest struct {
	entries []string
}

// New builds a manifest from entries, dropping blanks and duplicates while
// preserving first-seen order.
func New(entries ...string) *Manifest {
	m := &Manifest{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || slices.Contains(m.entries, e) {
			continue
		}
		m.entries = append(m.entries, e)
	}
	return m
}

// Default returns the built-in manifest for an application served under
// basePath (for example "/app", or "" for the origin root).
func Default(basePath string) *Manifest {
	basePath = BasePath(basePath)
	entries := make([]string, 0, len(localAssets)+3)
	for _, p := range localAssets {
		entries = append(entries, basePath+p)
	}
	entries = append(entries, OpentypeURL, JSZipURL, AvatarURL)
	return New(entries...)
}

// BasePath normalizes a scope path: leading slash, no trailing slash, and ""
// for the root.
func BasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Entries returns a copy of the ordered entries.
func (m *Manifest) Entries() []string {
	return slices.Clone(m.entries)
}

// Len is the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Contains reports whether u is listed, compared both as the full absolute
// URL and as its path-only form.
func (m *Manifest) Contains(u *url.URL) bool {
	if u == nil {
		return false
	}
	full := *u
	full.Fragment = ""
	full.RawFragment = ""
	return slices.Contains(m.entries, full.String()) || slices.Contains(m.entries, u.EscapedPath())
}

// Resolve returns absolute URLs for every entry, in order, resolved against
// the application origin.
func (m *Manifest) Resolve(scope *url.URL) ([]string, error) {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		ref, err := url.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("invalid manifest entry %q: %w", e, err)
		}
		out = append(out, scope.ResolveReference(ref).String())
	}
	return out, nil
}

// Load reads a JSON manifest file. Accepted shapes:
//
//	["/a", "/b"]
//	[{"url": "/a"}, {"url": "/b", "revision": "..."}]
//	{"urls": [...]}  (either element form)
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	log.Debugf("loaded %d manifest entries from %s", m.Len(), path)
	return m, nil
}

// Parse is Load without the file.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	list := doc
	if doc.IsObject() {
		list = doc.Get("urls")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("expected an array of URLs")
	}

	var entries []string
	for _, item := range list.Array() {
		switch {
		case item.Type == gjson.String:
			entries = append(entries, item.String())
		case item.IsObject() && item.Get("url").Type == gjson.String:
			entries = append(entries, item.Get("url").String())
		default:
			return nil, fmt.Errorf("unsupported manifest entry %s", item.Raw)
		}
	}
	return New(entries...), nil
}
