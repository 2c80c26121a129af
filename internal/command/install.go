// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/output"
)

// InstallCommandAction precaches the manifest for the current version and
// lists what was stored.
func InstallCommandAction(ctx context.Context, cmd *cli.Command) error {
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

	if err := eng.Install(ctx); err != nil {
		return err
	}

	name := eng.Names().Precache
	ns, err := st.Open(ctx, name)
	if err != nil {
		return err
	}

	var rows []map[string]interface{}
	for _, u := range eng.PrecacheURLs() {
		s, ok, err := ns.Match(ctx, u)
		if err != nil || !ok {
			log.WithError(err).Warnf("%s missing after install", u)
			continue
		}
		rows = append(rows, map[string]interface{}{
			"url":       u,
			"namespace": name,
			"status":    s.Status,
			"size":      s.Size(),
		})
	}

	return output.SliceDiceSpit(rows, []output.Column{
		{Key: "url"},
		{Key: "status"},
		{Key: "size", Format: output.Bytes},
		{Key: "namespace"},
	}, output.OptionsFrom(cmd), cmd.Root().Writer)
}

// InstallCommandBuilder constructs the cli.Command definition for "install".
func InstallCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "install",
		Usage:     "precache the manifest for the current version",
		UsageText: `swcache install [options]`,
		Policy:    true,
		Output:    true,
		Action:    InstallCommandAction,
		Meta:      meta,
	}).Build()
}
