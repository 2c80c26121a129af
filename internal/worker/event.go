// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"net/http"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/swcache/internal/snapshot"
)

// Task is a unit of work an event handler asks the runtime to wait for.
type Task func(ctx context.Context) error

// ExtendableEvent lets a handler keep the event alive until its work is done.
type ExtendableEvent struct {
	ctx context.Context
	g   errgroup.Group
}

// Context is the context tasks registered on this event run under.
func (e *ExtendableEvent) Context() context.Context {
	return e.ctx
}

// WaitUntil starts task and registers it with the event. The event completes
// when every registered task has returned; the first error fails it.
func (e *ExtendableEvent) WaitUntil(task Task) {
	e.g.Go(func() error { return task(e.ctx) })
}

func (e *ExtendableEvent) wait() error {
	return e.g.Wait()
}

// InstallEvent is dispatched once per worker before it can control pages.
type InstallEvent struct {
	ExtendableEvent
	skip bool
}

// SkipWaiting asks the runtime to activate the worker as soon as install
// completes instead of waiting for the current worker to go idle.
func (e *InstallEvent) SkipWaiting() {
	e.skip = true
}

// ActivateEvent is dispatched when the worker becomes the active one.
type ActivateEvent struct {
	ExtendableEvent
	clients *WorkerClients
}

// Clients returns the client registry as seen by the activating worker.
func (e *ActivateEvent) Clients() *WorkerClients {
	return e.clients
}

// Responder produces the response for a fetch event.
type Responder func(ctx context.Context) (*snapshot.Snapshot, error)

// FetchEvent is dispatched for every request from a controlled page and for
// every navigation in scope.
type FetchEvent struct {
	ExtendableEvent

	Request  *http.Request
	Mode     Mode
	ClientID string

	mu      sync.Mutex
	respond Responder
}

// RespondWith takes over the request. Handlers that never call it leave the
// request to the default network path. Only the first call counts.
func (e *FetchEvent) RespondWith(r Responder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.respond != nil {
		log.Warnf("respondWith called twice for %s", e.Request.URL)
		return
	}
	e.respond = r
}

func (e *FetchEvent) responder() Responder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.respond
}
