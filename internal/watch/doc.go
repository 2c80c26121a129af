// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package watch notices edits to a single file, such as the version file a
// running proxy was started with.
package watch
