// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/output"
	"github.com/staranto/swcache/internal/policy"
)

// PurgeCommandAction deletes the named namespaces, every namespace with
// --all, or those of other versions with --stale.
func PurgeCommandAction(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	all, stale := cmd.Bool("all"), cmd.Bool("stale")

	switch {
	case len(names) == 0 && !all && !stale:
		return errors.New("name a namespace, or use --all or --stale")
	case len(names) > 0 && (all || stale):
		return errors.New("namespaces cannot be named with --all or --stale")
	case all && stale:
		return errors.New("--all and --stale are mutually exclusive")
	}

	st, closer, err := OpenStorage(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	if all || stale {
		keys, err := st.Keys(ctx)
		if err != nil {
			return err
		}
		var current policy.Names
		if stale {
			ver, err := ResolveVersion(cmd)
			if err != nil {
				return err
			}
			current = policy.NamesFor(ver)
		}
		for _, k := range keys {
			if all || current.Stale(k) {
				names = append(names, k)
			}
		}
	}

	rows := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		deleted, err := st.Delete(ctx, name)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"namespace": name,
			"deleted":   deleted,
		})
	}

	return output.SliceDiceSpit(rows, []output.Column{
		{Key: "namespace"},
		{Key: "deleted"},
	}, output.OptionsFrom(cmd), cmd.Root().Writer)
}

// PurgeCommandBuilder constructs the cli.Command definition for "purge".
func PurgeCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "purge",
		Usage:     "delete namespaces",
		UsageText: `swcache purge [namespace...] [options]`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "delete every namespace",
			},
			&cli.BoolFlag{
				Name:  "stale",
				Usage: "delete the namespaces of other versions",
			},
		},
		Policy: true,
		Output: true,
		Action: PurgeCommandAction,
		Meta:   meta,
		Examples: [][2]string{
			{"swcache purge precache-1.1.0", "delete one namespace"},
			{"swcache purge --stale -V 1.2.0", "keep only the namespaces of 1.2.0"},
			{"swcache purge --all", "start over"},
		},
	}).Build()
}
