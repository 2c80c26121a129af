// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/swcache/internal/fetch"
	"github.com/staranto/swcache/internal/manifest"
	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
	"github.com/staranto/swcache/internal/worker"
)

var (
	// ErrInstallIncomplete is returned when any manifest URL could not be
	// fetched with an OK status. Nothing is stored in that case.
	ErrInstallIncomplete = errors.New("precache incomplete")

	// ErrNoCachedDocument is returned when a navigation fails on the network
	// and no cached document exists.
	ErrNoCachedDocument = errors.New("network failed and no cached document")
)

// Options configure an Engine.
type Options struct {
	// Version is the build identifier the namespace names derive from.
	Version string
	// Scope is the application base URL, e.g. http://localhost:8080/app/.
	Scope *url.URL
	// Manifest defaults to manifest.Default for the scope path.
	Manifest *manifest.Manifest
	Storage  storage.Storage
	Fetcher  fetch.Fetcher
	// FontOrigins defaults to DefaultFontOrigins.
	FontOrigins []string
}

// Engine decides, per request, whether to answer from a cache namespace, the
// network, or the network with a background store, and owns the namespace
// lifecycle for one version.
type Engine struct {
	version     string
	names       Names
	manifest    *manifest.Manifest
	precache    []string
	document    string
	storage     storage.Storage
	fetcher     fetch.Fetcher
	fontOrigins []string
}

// New validates opts and builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Version == "" {
		return nil, errors.New("version is required")
	}
	if opts.Scope == nil || !opts.Scope.IsAbs() || opts.Scope.Host == "" {
		return nil, errors.New("scope must be an absolute URL")
	}
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}

	base := manifest.BasePath(opts.Scope.Path)
	m := opts.Manifest
	if m == nil {
		m = manifest.Default(base)
	}
	precache, err := m.Resolve(opts.Scope)
	if err != nil {
		return nil, err
	}
	doc, err := opts.Scope.Parse(base + manifest.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("invalid document URL: %w", err)
	}

	origins := opts.FontOrigins
	if len(origins) == 0 {
		origins = DefaultFontOrigins
	}
	normalized := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil {
			return nil, fmt.Errorf("invalid font origin %q: %w", o, err)
		}
		normalized = append(normalized, Origin(u))
	}

	return &Engine{
		version:     opts.Version,
		names:       NamesFor(opts.Version),
		manifest:    m,
		precache:    precache,
		document:    snapshot.Key(doc),
		storage:     opts.Storage,
		fetcher:     opts.Fetcher,
		fontOrigins: normalized,
	}, nil
}

// Version is the engine's build identifier.
func (e *Engine) Version() string { return e.version }

// Names are the namespace names for the engine's version.
func (e *Engine) Names() Names { return e.names }

// DocumentURL is the canonical key navigations are stored under.
func (e *Engine) DocumentURL() string { return e.document }

// PrecacheURLs are the resolved manifest URLs in manifest order.
func (e *Engine) PrecacheURLs() []string {
	return append([]string(nil), e.precache...)
}

// Worker returns a worker for the engine's version with the install,
// activate and fetch handlers attached.
func (e *Engine) Worker() *worker.Worker {
	w := worker.New(e.version)
	w.OnInstall(func(ev *worker.InstallEvent) {
		ev.WaitUntil(func(ctx context.Context) error {
			if err := e.Install(ctx); err != nil {
				return err
			}
			ev.SkipWaiting()
			return nil
		})
	})
	w.OnActivate(func(ev *worker.ActivateEvent) {
		ev.WaitUntil(func(ctx context.Context) error {
			if _, err := e.Activate(ctx); err != nil {
				return err
			}
			return ev.Clients().Claim()
		})
	})
	w.OnFetch(e.HandleFetch)
	return w
}

// Install fetches every manifest URL concurrently and stores the responses
// in the precache namespace. Either every response is OK and all of them are
// stored, or install fails and the namespace is left as it was.
func (e *Engine) Install(ctx context.Context) error {
	ns, err := e.storage.Open(ctx, e.names.Precache)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.names.Precache, err)
	}

	snaps := make([]*snapshot.Snapshot, len(e.precache))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range e.precache {
		g.Go(func() error {
			s, err := fetch.Get(gctx, e.fetcher, u)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInstallIncomplete, err)
			}
			if !s.OK() {
				return fmt.Errorf("%w: %s returned %d", ErrInstallIncomplete, u, s.Status)
			}
			snaps[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// A reinstall over an existing namespace must leave it as it was when a
	// store fails, so entries are saved before they are replaced.
	prev := make(map[string]*snapshot.Snapshot, len(e.precache))
	for _, u := range e.precache {
		s, ok, err := ns.Match(ctx, u)
		if err != nil {
			return fmt.Errorf("%w: match %s: %w", ErrInstallIncomplete, u, err)
		}
		if ok {
			prev[u] = s
		}
	}

	for i, u := range e.precache {
		if err := ns.Put(ctx, u, snaps[i]); err != nil {
			e.rollback(ctx, ns, e.precache[:i], prev)
			return fmt.Errorf("%w: store %s: %w", ErrInstallIncomplete, u, err)
		}
	}
	log.Debugf("precached %d urls into %s", len(e.precache), e.names.Precache)
	return nil
}

// rollback restores keys to their entries in prev, deleting those that had
// none.
func (e *Engine) rollback(ctx context.Context, ns storage.Namespace, keys []string, prev map[string]*snapshot.Snapshot) {
	for _, k := range keys {
		var err error
		if s, ok := prev[k]; ok {
			err = ns.Put(ctx, k, s)
		} else {
			_, err = ns.Delete(ctx, k)
		}
		if err != nil {
			log.WithError(err).Warnf("failed to roll back %s in %s", k, ns.Name())
		}
	}
}

// Activate deletes every namespace owned by another version and returns the
// deleted names. Deletions run concurrently.
func (e *Engine) Activate(ctx context.Context) ([]string, error) {
	all, err := e.storage.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	var stale []string
	for _, name := range all {
		if e.names.Stale(name) {
			stale = append(stale, name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range stale {
		g.Go(func() error {
			if _, err := e.storage.Delete(gctx, name); err != nil {
				return fmt.Errorf("failed to delete %s: %w", name, err)
			}
			log.Debugf("deleted stale namespace %s", name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stale, nil
}

// HandleFetch routes one fetch event. Unclassified requests are left alone.
func (e *Engine) HandleFetch(ev *worker.FetchEvent) {
	kind := e.Classify(ev.Request)
	log.Debugf("%s %s -> %s", ev.Request.Method, ev.Request.URL, kind)

	switch kind {
	case KindNavigation:
		e.navigate(ev)
	case KindFont:
		e.revalidate(ev)
	case KindPrecache:
		e.cacheFirst(ev)
	}
}

// navigate is network-first. A network response is stored under the
// document URL in the background; a network error falls back to the cached
// document.
func (e *Engine) navigate(ev *worker.FetchEvent) {
	ev.RespondWith(func(ctx context.Context) (*snapshot.Snapshot, error) {
		s, err := e.fetcher.Fetch(ctx, ev.Request)
		if err != nil {
			cached, ok, merr := storage.MatchAll(ctx, e.storage, e.document)
			if merr != nil {
				log.WithError(merr).Warnf("failed to match %s", e.document)
			}
			if ok {
				log.Debugf("network failed for %s, serving cached document", ev.Request.URL)
				return cached, nil
			}
			return nil, fmt.Errorf("%w: %w", ErrNoCachedDocument, err)
		}

		// Whatever the navigation was, the copy is the document.
		stored := s.Clone()
		stored.URL = e.document
		stored.Method = http.MethodGet
		ev.WaitUntil(func(ctx context.Context) error {
			return e.store(ctx, e.names.Precache, e.document, stored)
		})
		return s, nil
	})
}

type fetched struct {
	s   *snapshot.Snapshot
	err error
}

// revalidate is stale-while-revalidate on the font namespace. The network
// fetch always starts and always refreshes the namespace on success.
func (e *Engine) revalidate(ev *worker.FetchEvent) {
	key := snapshot.RequestKey(ev.Request)

	ev.RespondWith(func(ctx context.Context) (*snapshot.Snapshot, error) {
		ns, err := e.storage.Open(ctx, e.names.Font)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", e.names.Font, err)
		}
		cached, hit, err := ns.Match(ctx, key)
		if err != nil {
			log.WithError(err).Warnf("failed to match %s in %s", key, e.names.Font)
			hit = false
		}

		network := make(chan fetched, 1)
		ev.WaitUntil(func(bctx context.Context) error {
			s, err := e.fetcher.Fetch(bctx, ev.Request)
			if err != nil {
				network <- fetched{err: err}
				if hit {
					// The caller already has the cached copy.
					log.WithError(err).Debugf("font revalidation failed for %s", key)
					return nil
				}
				return err
			}
			stored := s.Clone()
			network <- fetched{s: s}
			return e.store(bctx, e.names.Font, key, stored)
		})

		if hit {
			return cached, nil
		}
		select {
		case r := <-network:
			return r.s, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// cacheFirst answers from any namespace and goes to the network on a miss
// without storing the result.
func (e *Engine) cacheFirst(ev *worker.FetchEvent) {
	key := snapshot.RequestKey(ev.Request)

	ev.RespondWith(func(ctx context.Context) (*snapshot.Snapshot, error) {
		cached, ok, err := storage.MatchAll(ctx, e.storage, key)
		if err != nil {
			log.WithError(err).Warnf("failed to match %s", key)
		}
		if ok {
			return cached, nil
		}
		return e.fetcher.Fetch(ctx, ev.Request)
	})
}

// Cached returns the snapshot the engine would serve from cache for r, without
// touching the network or creating namespaces. Passthrough requests never
// have one.
func (e *Engine) Cached(ctx context.Context, r *http.Request) (*snapshot.Snapshot, bool, error) {
	switch e.Classify(r) {
	case KindNavigation:
		return storage.MatchAll(ctx, e.storage, e.document)
	case KindFont:
		ok, err := e.storage.Has(ctx, e.names.Font)
		if err != nil || !ok {
			return nil, false, err
		}
		ns, err := e.storage.Open(ctx, e.names.Font)
		if err != nil {
			return nil, false, err
		}
		return ns.Match(ctx, snapshot.RequestKey(r))
	case KindPrecache:
		return storage.MatchAll(ctx, e.storage, snapshot.RequestKey(r))
	default:
		return nil, false, nil
	}
}

// store opens name and puts s under key. Failures are returned to the
// runtime, which logs them; nothing retries.
func (e *Engine) store(ctx context.Context, name, key string, s *snapshot.Snapshot) error {
	ns, err := e.storage.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	if err := ns.Put(ctx, key, s); err != nil {
		return fmt.Errorf("failed to store %s in %s: %w", key, name, err)
	}
	return nil
}
