// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"errors"
	"slices"
	"sync"
)

// ErrNotActive is returned by Claim when the calling worker is not the
// active one.
var ErrNotActive = errors.New("worker is not active")

// Clients tracks page connections and the worker controlling each.
type Clients struct {
	mu    sync.Mutex
	order []string
	ctrl  map[string]*Worker
}

func newClients() *Clients {
	return &Clients{ctrl: make(map[string]*Worker)}
}

// Touch records id as a known client without changing its controller.
func (c *Clients) Touch(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(id)
}

func (c *Clients) touchLocked(id string) {
	if _, ok := c.ctrl[id]; !ok {
		c.ctrl[id] = nil
		c.order = append(c.order, id)
	}
}

// Control sets the controller of id.
func (c *Clients) Control(id string, w *Worker) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(id)
	c.ctrl[id] = w
}

// Controller returns the worker controlling id, or nil.
func (c *Clients) Controller(id string) *Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl[id]
}

// IDs lists known clients in first-seen order.
func (c *Clients) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Controlled counts clients that have a controller.
func (c *Clients) Controlled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.ctrl {
		if w != nil {
			n++
		}
	}
	return n
}

// handover moves every client controlled by from to to.
func (c *Clients) handover(from, to *Worker) {
	if from == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, w := range c.ctrl {
		if w == from {
			c.ctrl[id] = to
		}
	}
}

// claim makes w the controller of every known client.
func (c *Clients) claim(w *Worker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.ctrl {
		c.ctrl[id] = w
	}
}

// WorkerClients is the client registry bound to one worker.
type WorkerClients struct {
	rt *Runtime
	w  *Worker
}

// Claim takes control of every known client immediately, without waiting
// for pages to reload.
func (wc *WorkerClients) Claim() error {
	if wc.rt.Active() != wc.w {
		return ErrNotActive
	}
	wc.rt.clients.claim(wc.w)
	return nil
}

// Count is the number of known clients.
func (wc *WorkerClients) Count() int {
	return len(wc.rt.clients.IDs())
}
