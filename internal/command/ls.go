// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/output"
	"github.com/staranto/swcache/internal/policy"
	"github.com/staranto/swcache/internal/storage"
)

// LsCommandAction lists namespaces, or the entries of the namespace named by
// the first argument.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	st, closer, err := OpenStorage(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	if name := cmd.Args().First(); name != "" {
		return listEntries(ctx, cmd, st, name)
	}

	ver, err := ResolveVersion(cmd)
	if err != nil {
		return err
	}
	return listNamespaces(ctx, cmd, st, policy.NamesFor(ver))
}

func listNamespaces(ctx context.Context, cmd *cli.Command, st storage.Storage, current policy.Names) error {
	names, err := st.Keys(ctx)
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		ns, err := st.Open(ctx, name)
		if err != nil {
			return err
		}
		keys, err := ns.Keys(ctx)
		if err != nil {
			return err
		}
		var size int64
		for _, k := range keys {
			s, ok, err := ns.Match(ctx, k)
			if err != nil {
				log.WithError(err).Debugf("sizing %s", k)
				continue
			}
			if ok {
				size += s.Size()
			}
		}
		rows = append(rows, map[string]interface{}{
			"namespace": name,
			"entries":   len(keys),
			"size":      size,
			"stale":     current.Stale(name),
		})
	}

	return output.SliceDiceSpit(rows, []output.Column{
		{Key: "namespace"},
		{Key: "entries"},
		{Key: "size", Format: output.Bytes},
		{Key: "stale"},
	}, output.OptionsFrom(cmd), cmd.Root().Writer)
}

func listEntries(ctx context.Context, cmd *cli.Command, st storage.Storage, name string) error {
	ok, err := st.Has(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no such namespace: %s", name)
	}

	ns, err := st.Open(ctx, name)
	if err != nil {
		return err
	}
	keys, err := ns.Keys(ctx)
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		s, ok, err := ns.Match(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rows = append(rows, map[string]interface{}{
			"url":      k,
			"status":   s.Status,
			"type":     s.Header.Get("Content-Type"),
			"size":     s.Size(),
			"captured": s.Captured,
		})
	}

	return output.SliceDiceSpit(rows, []output.Column{
		{Key: "url"},
		{Key: "status"},
		{Key: "type"},
		{Key: "size", Format: output.Bytes},
		{Key: "captured", Format: output.Age},
	}, output.OptionsFrom(cmd), cmd.Root().Writer)
}

// LsCommandBuilder constructs the cli.Command definition for "ls".
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "ls",
		Usage:     "list namespaces or the entries of one",
		UsageText: `swcache ls [namespace] [options]`,
		Policy:    true,
		Output:    true,
		Action:    LsCommandAction,
		Meta:      meta,
		Examples: [][2]string{
			{"swcache ls", "namespaces, with those of other versions marked stale"},
			{"swcache ls precache-1.2.0 --sort=-size", "entries, largest first"},
			{"swcache ls fontcache-1.2.0 -f url@woff2", "font files only"},
		},
	}).Build()
}
