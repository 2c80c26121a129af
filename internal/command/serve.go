// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/proxy"
	"github.com/staranto/swcache/internal/storage"
	"github.com/staranto/swcache/internal/watch"
	"github.com/staranto/swcache/internal/worker"
)

const shutdownGrace = 10 * time.Second

// ServeCommandAction installs the current version and runs the caching proxy
// until interrupted.
func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	ln, err := net.Listen("tcp", cmd.String("listen"))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cmd, ln)
}

// Serve runs the proxy on ln until ctx is done, then waits for in-flight
// requests and background stores.
func Serve(ctx context.Context, cmd *cli.Command, ln net.Listener) error {
	st, closer, err := OpenStorage(ctx, cmd)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer closer.Close()

	upstream, err := upstreamFor(cmd)
	if err != nil {
		_ = ln.Close()
		return err
	}

	ver, err := ResolveVersion(cmd)
	if err != nil {
		_ = ln.Close()
		return err
	}

	rt := worker.NewRuntime()
	if err := register(ctx, cmd, rt, st, ver); err != nil {
		_ = ln.Close()
		return err
	}

	if path := cmd.String("version-file"); path != "" && !cmd.IsSet("version-tag") {
		w, err := watch.New(resolvePath(cmd, path), 0)
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer w.Close()
		go func() {
			current := ver
			_ = w.Run(ctx, func() {
				next, err := readVersionFile(w.Path())
				if err != nil {
					log.WithError(err).Warn("version file unreadable")
					return
				}
				if next == current {
					return
				}
				if err := register(ctx, cmd, rt, st, next); err != nil {
					log.WithError(err).Errorf("version %s not installed", next)
					return
				}
				current = next
			})
		}()
	}

	srv := &http.Server{
		Handler:           proxy.New(rt, upstream, proxy.WithDialTimeout(cmd.Duration("timeout"))),
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	fmt.Fprintf(cmd.Root().Writer, "swcache %s listening on %s, upstream %s\n", ver, ln.Addr(), upstream)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Debug("shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
	return rt.Drain(sctx)
}

// register installs and activates a worker for ver.
func register(ctx context.Context, cmd *cli.Command, rt *worker.Runtime, st storage.Storage, ver string) error {
	eng, err := BuildEngine(cmd, st, ver, nil)
	if err != nil {
		return err
	}
	log.Infof("registering %s", ver)
	return rt.Register(ctx, eng.Worker())
}

// upstreamFor returns --upstream, or the origin of --scope when unset.
func upstreamFor(cmd *cli.Command) (*url.URL, error) {
	if raw := cmd.String("upstream"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream: %w", err)
		}
		return u, nil
	}
	scope, err := Scope(cmd)
	if err != nil {
		return nil, err
	}
	return &url.URL{Scheme: scope.Scheme, Host: scope.Host}, nil
}

// ServeCommandBuilder constructs the cli.Command definition for "serve".
func ServeCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "serve",
		Usage:     "run the caching proxy",
		UsageText: `swcache serve [options]`,
		Flags: []cli.Flag{
			withConfig("serve", &cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "address to listen on",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SWCACHE_LISTEN"),
				),
				Value: "127.0.0.1:8080",
			}),
			withConfig("serve", &cli.StringFlag{
				Name:  "upstream",
				Usage: "origin server; the scope origin when empty",
				Validator: func(value string) error {
					return FlagValidators(value, AbsoluteURLValidator)
				},
			}),
		},
		Policy: true,
		Action: ServeCommandAction,
		Meta:   meta,
	}).Build()
}
