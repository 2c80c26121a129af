// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/differ"
	"github.com/staranto/swcache/internal/fetch"
	"github.com/staranto/swcache/internal/meta"
)

// DiffCommandAction compares the cached copy of a URL with what the network
// returns now.
func DiffCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("exactly one URL is required")
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
	fetcher := fetch.NewClient(cmd.Duration("timeout"))
	eng, err := BuildEngine(cmd, st, ver, fetcher)
	if err != nil {
		return err
	}

	req, err := requestFor(ctx, cmd, cmd.Args().First())
	if err != nil {
		return err
	}
	cached, ok, err := eng.Cached(ctx, req)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not cached (%s)", req.URL, eng.Classify(req))
	}

	live, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", req.URL, err)
	}
	log.Debugf("diffing %s captured %s", cached.URL, cached.Captured)

	w := cmd.Root().Writer
	changed, err := differ.Diff(w, cached, live, cmd.Bool("color"))
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(w, "no differences")
	}
	return nil
}

// DiffCommandBuilder constructs the cli.Command definition for "diff".
func DiffCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "diff",
		Usage:     "compare a cached response with the live one",
		UsageText: `swcache diff URL [options]`,
		Flags: append(requestFlags(), &cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored diff output",
		}),
		Policy: true,
		Action: DiffCommandAction,
		Meta:   meta,
	}).Build()
}
