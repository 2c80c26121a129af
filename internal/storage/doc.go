// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package storage defines named cache namespaces and the rules shared by
// the memory, disk, sqlite and s3 backends in its subpackages.
package storage
