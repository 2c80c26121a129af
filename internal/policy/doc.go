// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package policy is the cache policy engine. For one version it names the
// precache and font namespaces, populates the precache namespace at install,
// removes other versions' namespaces at activation, and routes each request
// to network-first, stale-while-revalidate, cache-first or passthrough.
package policy
