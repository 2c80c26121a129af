// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/output"
)

// ActivateCommandAction deletes the namespaces of every other version and
// lists them.
func ActivateCommandAction(ctx context.Context, cmd *cli.Command) error {
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

	deleted, err := eng.Activate(ctx)
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(deleted))
	for _, name := range deleted {
		rows = append(rows, map[string]interface{}{"namespace": name})
	}
	return output.SliceDiceSpit(rows, []output.Column{{Key: "namespace"}},
		output.OptionsFrom(cmd), cmd.Root().Writer)
}

// ActivateCommandBuilder constructs the cli.Command definition for
// "activate".
func ActivateCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "activate",
		Usage:     "delete namespaces left by other versions",
		UsageText: `swcache activate [options]`,
		Policy:    true,
		Output:    true,
		Action:    ActivateCommandAction,
		Meta:      meta,
	}).Build()
}
