// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package snapshot defines the buffered response value that every cache
// namespace stores and every strategy returns.
package snapshot
