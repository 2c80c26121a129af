// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/swcache/internal/snapshot"
)

// ignoredHeaders change on every response and would drown the diff.
var ignoredHeaders = map[string]bool{
	"Date":           true,
	"Age":            true,
	"Content-Length": true,
	"X-Request-Id":   true,
}

// Document renders a snapshot as a JSON object: status, headers and body.
// JSON bodies are embedded as values; anything else as a string.
func Document(s *snapshot.Snapshot) ([]byte, error) {
	headers := make(map[string]string, len(s.Header))
	names := make([]string, 0, len(s.Header))
	for k := range s.Header {
		if !ignoredHeaders[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		headers[k] = s.Header.Get(k)
	}

	doc := map[string]any{
		"status":  s.Status,
		"headers": headers,
	}
	if len(s.Body) > 0 && gjson.ValidBytes(s.Body) {
		doc["body"] = json.RawMessage(s.Body)
	} else {
		doc["body"] = string(s.Body)
	}
	return json.Marshal(doc)
}

// Diff writes an ascii diff of two snapshots to w and reports whether they
// differ.
func Diff(w io.Writer, left, right *snapshot.Snapshot, color bool) (bool, error) {
	a, err := Document(left)
	if err != nil {
		return false, fmt.Errorf("failed to encode left: %w", err)
	}
	b, err := Document(right)
	if err != nil {
		return false, fmt.Errorf("failed to encode right: %w", err)
	}
	return DiffJSON(w, a, b, color)
}

// DiffJSON diffs two JSON object documents.
func DiffJSON(w io.Writer, a, b []byte, color bool) (bool, error) {
	d, err := gojsondiff.New().Compare(a, b)
	if err != nil {
		return false, fmt.Errorf("failed to compare: %w", err)
	}
	if !d.Modified() {
		log.Debug("documents are identical")
		return false, nil
	}

	var left map[string]interface{}
	if err := json.Unmarshal(a, &left); err != nil {
		return true, fmt.Errorf("failed to decode left: %w", err)
	}

	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	out, err := f.Format(d)
	if err != nil {
		return true, fmt.Errorf("failed to format diff: %w", err)
	}
	_, err = io.WriteString(w, out)
	return true, err
}
