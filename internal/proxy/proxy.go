// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/staranto/swcache/internal/worker"
)

const (
	// ClientCookie carries the client ID that ties requests to a page.
	ClientCookie = "swcache_client"
	// VersionHeader names the worker version that answered a request.
	VersionHeader = "X-Swcache-Version"
)

// Server turns inbound HTTP requests into fetch events. Requests the runtime
// does not handle go to the network unchanged.
type Server struct {
	rt       *worker.Runtime
	upstream *url.URL
	rp       *httputil.ReverseProxy
	dialer   *net.Dialer
	pages    *pages
}

// Option configures a Server.
type Option func(*Server)

// WithTransport sets the round tripper used for passthrough requests.
func WithTransport(t http.RoundTripper) Option {
	return func(s *Server) { s.rp.Transport = t }
}

// WithDialTimeout bounds how long a CONNECT tunnel waits for its target.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Server) { s.dialer.Timeout = d }
}

// New returns a server routing through rt. Origin-form requests are sent to
// upstream; with a nil upstream only absolute-form (forward proxy) requests
// are accepted.
func New(rt *worker.Runtime, upstream *url.URL, opts ...Option) *Server {
	s := &Server{
		rt:       rt,
		upstream: upstream,
		dialer:   &net.Dialer{Timeout: 30 * time.Second},
		pages:    newPages(),
	}
	s.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.Host = ""
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithError(err).Warnf("passthrough %s failed", r.URL)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.tunnel(w, r)
		return
	}

	target, err := s.target(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := r.Clone(r.Context())
	out.URL = target
	out.Host = target.Host

	id, fresh := clientID(r)
	mode := worker.ModeOf(out)
	if mode == worker.ModeNavigate {
		if fresh {
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		s.pages.remember(target, id)
	} else if fresh {
		if page, ok := s.pages.lookup(r); ok {
			id = page
		}
	}

	res, err := s.rt.Dispatch(r.Context(), out, id)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		log.Debugf("client went away: %s", target)
		return
	case res.Handled && err != nil:
		log.WithError(err).Warnf("%s %s failed", r.Method, target)
		w.Header().Set(VersionHeader, res.Version)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	case res.Handled:
		w.Header().Set(VersionHeader, res.Version)
		if err := res.Snapshot.WriteTo(w); err != nil {
			log.WithError(err).Debugf("failed to write %s", target)
		}
		return
	case err != nil:
		log.WithError(err).Warnf("dispatch %s failed", target)
	}

	s.rp.ServeHTTP(w, out)
}

// target makes r's URL absolute.
func (s *Server) target(r *http.Request) (*url.URL, error) {
	if r.URL.IsAbs() && r.URL.Host != "" {
		u := *r.URL
		return &u, nil
	}
	if s.upstream == nil {
		return nil, errors.New("origin-form request without an upstream")
	}
	u := *r.URL
	u.Scheme = s.upstream.Scheme
	u.Host = s.upstream.Host
	return &u, nil
}

func clientID(r *http.Request) (string, bool) {
	if c, err := r.Cookie(ClientCookie); err == nil && c.Value != "" {
		return c.Value, false
	}
	return uuid.NewString(), true
}

// tunnel splices a CONNECT request to its target. Tunnelled bytes are
// opaque and never cached.
func (s *Server) tunnel(w http.ResponseWriter, r *http.Request) {
	dst, err := s.dialer.DialContext(r.Context(), "tcp", r.Host)
	if err != nil {
		log.WithError(err).Warnf("connect %s failed", r.Host)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		dst.Close()
		http.Error(w, "tunnelling not supported", http.StatusInternalServerError)
		return
	}
	src, buf, err := hj.Hijack()
	if err != nil {
		dst.Close()
		log.WithError(err).Warn("hijack failed")
		return
	}
	if _, err := src.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		src.Close()
		dst.Close()
		return
	}
	log.Debugf("tunnel %s open", r.Host)

	done := make(chan struct{}, 2)
	go func() {
		// Anything the client sent after the CONNECT line is already buffered.
		if n := buf.Reader.Buffered(); n > 0 {
			peek, _ := buf.Reader.Peek(n)
			_, _ = dst.Write(peek)
		}
		_, _ = io.Copy(dst, src)
		closeWrite(dst)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(src, dst)
		closeWrite(src)
		done <- struct{}{}
	}()
	<-done
	<-done
	src.Close()
	dst.Close()
	log.Debugf("tunnel %s closed", r.Host)
}

func closeWrite(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
}
