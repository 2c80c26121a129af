// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package proxy is the HTTP front door of the worker runtime. It accepts
// reverse-proxy (origin-form) and forward-proxy (absolute-form) requests,
// dispatches them as fetch events and passes unhandled requests and CONNECT
// tunnels through to the network.
package proxy
