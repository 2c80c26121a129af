// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/apex/log"

	"github.com/staranto/swcache/internal/snapshot"
)

// ErrNoWaitingWorker is returned by Promote when nothing is waiting.
var ErrNoWaitingWorker = errors.New("no waiting worker")

// Result is the outcome of dispatching one request.
type Result struct {
	// Handled is false when the request should take the default network
	// path with no caching side effects.
	Handled  bool
	Snapshot *snapshot.Snapshot
	// Version of the worker that handled the request.
	Version string
}

// Runtime hosts workers: it runs their lifecycle events, routes requests to
// the active one and keeps their background work alive.
type Runtime struct {
	lifecycle sync.Mutex

	mu      sync.RWMutex
	active  *Worker
	waiting *Worker

	clients *Clients

	background sync.WaitGroup
}

// NewRuntime returns a runtime with no workers.
func NewRuntime() *Runtime {
	return &Runtime{clients: newClients()}
}

// Active returns the active worker, or nil.
func (rt *Runtime) Active() *Worker {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.active
}

// Waiting returns the installed worker waiting to activate, or nil.
func (rt *Runtime) Waiting() *Worker {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.waiting
}

// Clients is the runtime's client registry.
func (rt *Runtime) Clients() *Clients {
	return rt.clients
}

// Register installs w. An install failure leaves w redundant and returns the
// error; the caller may register a fresh worker later. A successfully
// installed worker activates immediately when it called SkipWaiting or when
// no worker is active, and waits for Promote otherwise.
func (rt *Runtime) Register(ctx context.Context, w *Worker) error {
	rt.lifecycle.Lock()
	defer rt.lifecycle.Unlock()

	w.setState(StateInstalling)
	log.Debugf("installing worker %s", w.Version)

	e := &InstallEvent{ExtendableEvent: ExtendableEvent{ctx: ctx}}
	if w.onInstall != nil {
		w.onInstall(e)
	}
	if err := e.wait(); err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("install %s: %w", w.Version, err)
	}
	w.setState(StateInstalled)

	rt.mu.Lock()
	prev := rt.waiting
	rt.waiting = w
	hasActive := rt.active != nil
	rt.mu.Unlock()

	if prev != nil && prev != w {
		prev.setState(StateRedundant)
	}

	if !hasActive || e.skip {
		return rt.activateWaiting(ctx)
	}
	log.Infof("worker %s installed and waiting", w.Version)
	return nil
}

// Promote activates the waiting worker.
func (rt *Runtime) Promote(ctx context.Context) error {
	rt.lifecycle.Lock()
	defer rt.lifecycle.Unlock()
	return rt.activateWaiting(ctx)
}

// activateWaiting must be called with the lifecycle lock held. Like the
// platform it models, a failed activate event is reported but does not undo
// the activation.
func (rt *Runtime) activateWaiting(ctx context.Context) error {
	rt.mu.Lock()
	w := rt.waiting
	if w == nil {
		rt.mu.Unlock()
		return ErrNoWaitingWorker
	}
	old := rt.active
	rt.waiting = nil
	rt.active = w
	rt.mu.Unlock()

	if old != nil {
		old.setState(StateRedundant)
		rt.clients.handover(old, w)
	}

	w.setState(StateActivating)
	log.Debugf("activating worker %s", w.Version)

	e := &ActivateEvent{
		ExtendableEvent: ExtendableEvent{ctx: ctx},
		clients:         &WorkerClients{rt: rt, w: w},
	}
	if w.onActivate != nil {
		w.onActivate(e)
	}
	err := e.wait()
	w.setState(StateActivated)

	if err != nil {
		return fmt.Errorf("activate %s: %w", w.Version, err)
	}
	log.Infof("worker %s activated", w.Version)
	return nil
}

// Dispatch routes req. Navigations go to the active worker, and the client
// becomes controlled by it. Other requests go to the client's controller, if
// any. Fetch events wait for the worker to finish activating.
func (rt *Runtime) Dispatch(ctx context.Context, req *http.Request, clientID string) (Result, error) {
	mode := ModeOf(req)
	rt.clients.Touch(clientID)

	var w *Worker
	if mode == ModeNavigate {
		w = rt.Active()
		if w != nil {
			rt.clients.Control(clientID, w)
		}
	} else {
		w = rt.clients.Controller(clientID)
	}
	if w == nil || w.onFetch == nil {
		return Result{}, nil
	}

	select {
	case <-w.activated:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	e := &FetchEvent{
		ExtendableEvent: ExtendableEvent{ctx: context.WithoutCancel(ctx)},
		Request:         req,
		Mode:            mode,
		ClientID:        clientID,
	}
	w.onFetch(e)

	// Responders may register more background work, so the waiter starts
	// only once the response is settled.
	defer rt.track(e, req)

	respond := e.responder()
	if respond == nil {
		return Result{Version: w.Version}, nil
	}

	s, err := respond(ctx)
	if err != nil {
		return Result{Handled: true, Version: w.Version}, err
	}
	if s == nil {
		return Result{Handled: true, Version: w.Version}, fmt.Errorf("no response for %s", req.URL)
	}
	return Result{Handled: true, Snapshot: s, Version: w.Version}, nil
}

func (rt *Runtime) track(e *FetchEvent, req *http.Request) {
	rt.background.Add(1)
	go func() {
		defer rt.background.Done()
		if err := e.wait(); err != nil {
			log.WithError(err).Warnf("background work for %s failed", req.URL)
		}
	}()
}

// Drain blocks until background work started by fetch events has finished
// or ctx is done.
func (rt *Runtime) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		rt.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
