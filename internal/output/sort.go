// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

type sortKey struct {
	key        string
	descending bool
	sensitive  bool
}

// SortDataset sorts rows in place by a comma separated list of keys. A
// leading "-" sorts descending and a leading "!" makes string comparison case
// sensitive. An empty spec leaves the order alone.
func SortDataset(rows []map[string]interface{}, spec string) {
	if spec == "" {
		return
	}

	var keys []sortKey
	for _, part := range strings.Split(spec, ",") {
		k := sortKey{}
		for len(part) > 0 && (part[0] == '-' || part[0] == '!') {
			if part[0] == '-' {
				k.descending = true
			} else {
				k.sensitive = true
			}
			part = part[1:]
		}
		if part == "" {
			continue
		}
		k.key = part
		keys = append(keys, k)
	}

	slices.SortStableFunc(rows, func(a, b map[string]interface{}) int {
		for _, k := range keys {
			c := compareValues(a[k.key], b[k.key], k.sensitive)
			if c == 0 {
				continue
			}
			if k.descending {
				return -c
			}
			return c
		}
		return 0
	})
}

func compareValues(a, b interface{}, sensitive bool) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	sa, sb := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	if a == nil {
		sa = ""
	}
	if b == nil {
		sb = ""
	}
	if !sensitive {
		sa, sb = strings.ToLower(sa), strings.ToLower(sb)
	}
	return strings.Compare(sa, sb)
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
