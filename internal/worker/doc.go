// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package worker hosts versioned workers the way a browser hosts service
// workers: install and activate lifecycle events whose lifetime handlers
// extend with WaitUntil, fetch events answered with RespondWith, a waiting
// slot for installed workers, and a client registry with claim.
package worker
