// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"sync"
)

// State is a worker's position in its lifecycle.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return "unknown"
	}
}

// Worker is one versioned set of event handlers. Register handlers before
// handing the worker to Runtime.Register.
type Worker struct {
	Version string

	onInstall  func(*InstallEvent)
	onActivate func(*ActivateEvent)
	onFetch    func(*FetchEvent)

	mu        sync.Mutex
	state     State
	activated chan struct{}
}

// New returns a worker for version with no handlers.
func New(version string) *Worker {
	return &Worker{Version: version, activated: make(chan struct{})}
}

func (w *Worker) OnInstall(fn func(*InstallEvent))   { w.onInstall = fn }
func (w *Worker) OnActivate(fn func(*ActivateEvent)) { w.onActivate = fn }
func (w *Worker) OnFetch(fn func(*FetchEvent))       { w.onFetch = fn }

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == s {
		return
	}
	w.state = s
	if s == StateActivated {
		close(w.activated)
	}
}
