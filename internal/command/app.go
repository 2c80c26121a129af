// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/config"
	"github.com/staranto/swcache/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg[1] immediately following the binary (arg[0]) is the swcache
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load()
	cfg.Namespace = ns
	config.Config.Namespace = ns

	env, err := config.ParseEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		Env:         env,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "swcache",
		Usage: "service worker style caching proxy",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "swcache version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		ServeCommandBuilder(meta),
		InstallCommandBuilder(meta),
		ActivateCommandBuilder(meta),
		LsCommandBuilder(meta),
		PurgeCommandBuilder(meta),
		RouteCommandBuilder(meta),
		DiffCommandBuilder(meta),
		CompletionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
