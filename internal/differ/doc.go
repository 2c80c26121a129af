// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package differ shows what changed between a cached response and a live
// one.
package differ
