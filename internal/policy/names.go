// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package policy

import "strings"

// Namespace name prefixes. Anything in storage carrying one of these and not
// matching the current version is stale.
const (
	PrecachePrefix  = "precache-"
	FontCachePrefix = "fontcache-"
)

// Names are the namespace names derived from one version tag.
type Names struct {
	Precache string
	Font     string
}

// NamesFor derives the namespace names for version. Distinct versions yield
// distinct names.
func NamesFor(version string) Names {
	return Names{
		Precache: PrecachePrefix + version,
		Font:     FontCachePrefix + version,
	}
}

// Stale reports whether name is a namespace this engine owns that belongs to
// a different version.
func (n Names) Stale(name string) bool {
	switch {
	case strings.HasPrefix(name, PrecachePrefix):
		return name != n.Precache
	case strings.HasPrefix(name, FontCachePrefix):
		return name != n.Font
	default:
		return false
	}
}
