// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/output"
	"github.com/staranto/swcache/internal/policy"
	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/worker"
)

// RouteCommandAction reports how each URL argument would be served and
// whether a cached copy exists.
func RouteCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("at least one URL is required")
	}

	st, closer, err := OpenStorage(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	ver, err := ResolveVersion(cmd)
	if err != nil {
		return err
	}
	eng, err := BuildEngine(cmd, st, ver, nil)
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, cmd.Args().Len())
	for _, raw := range cmd.Args().Slice() {
		req, err := requestFor(ctx, cmd, raw)
		if err != nil {
			return err
		}
		kind := eng.Classify(req)
		_, cached, err := eng.Cached(ctx, req)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"url":       snapshot.RequestKey(req),
			"kind":      kind.String(),
			"strategy":  kind.Strategy(),
			"namespace": namespaceFor(kind, eng.Names()),
			"cached":    cached,
		})
	}

	return output.SliceDiceSpit(rows, []output.Column{
		{Key: "url"},
		{Key: "kind"},
		{Key: "namespace"},
		{Key: "cached"},
		{Key: "strategy"},
	}, output.OptionsFrom(cmd), cmd.Root().Writer)
}

// requestFor builds the request a browser would send for raw. Relative URLs
// resolve against the scope.
func requestFor(ctx context.Context, cmd *cli.Command, raw string) (*http.Request, error) {
	scope, err := Scope(cmd)
	if err != nil {
		return nil, err
	}
	u, err := scope.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(cmd.String("method")), u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Sec-Fetch-Mode", cmd.String("mode"))
	return req, nil
}

// namespaceFor names where a kind reads from. Manifest assets are matched
// across every namespace.
func namespaceFor(kind policy.Kind, names policy.Names) string {
	switch kind {
	case policy.KindNavigation:
		return names.Precache
	case policy.KindFont:
		return names.Font
	case policy.KindPrecache:
		return "*"
	default:
		return ""
	}
}

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "request mode: navigate, no-cors, cors or same-origin",
			Value:   string(worker.ModeNoCORS),
			Validator: func(value string) error {
				return oneOf(value,
					string(worker.ModeNavigate),
					string(worker.ModeNoCORS),
					string(worker.ModeCORS),
					string(worker.ModeSameOrigin))
			},
		},
		&cli.StringFlag{
			Name:  "method",
			Usage: "request method",
			Value: http.MethodGet,
		},
	}
}

// RouteCommandBuilder constructs the cli.Command definition for "route".
func RouteCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "route",
		Usage:     "show how a URL would be served",
		UsageText: `swcache route URL... [options]`,
		Flags:     requestFlags(),
		Policy:    true,
		Output:    true,
		Action:    RouteCommandAction,
		Meta:      meta,
		Examples: [][2]string{
			{"swcache route /app/ -m navigate", "a page load"},
			{"swcache route https://fonts.gstatic.com/s/x.woff2", "a font file"},
		},
	}).Build()
}
