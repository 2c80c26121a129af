// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package version carries the build version. The value doubles as the cache
// version tag, so every deployed build gets its own namespaces.
package version

// Version is overwritten at build time with
// -ldflags "-X github.com/staranto/swcache/internal/version.Version=...".
var Version = "dev"
