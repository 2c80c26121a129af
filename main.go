// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/swcache/internal/cacheutil"
	"github.com/staranto/swcache/internal/command"
	"github.com/staranto/swcache/internal/config"
	mylog "github.com/staranto/swcache/internal/log"
	"github.com/staranto/swcache/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	env, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	mylog.InitLogger(env.LogLevel)

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	// Non-fatal: the backend reports the same error when it opens.
	if err := ensureCacheDir(args, env); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an @set argument, or @defaults when none is given,
// into the flags listed under <command>.<set> in the config file. The
// expansion goes where the @set was, or right after the command.
func mangleArguments(args []string) []string {
	if len(args) < 2 || strings.HasPrefix(args[1], "-") {
		return args
	}

	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	out := append(preamble, args[2:]...) //nolint:gocritic

	idx := 2
	set := "defaults"
	// See if there is a @set specified. If so, that becomes the insertion
	// point and the @set entry is removed from args.
	for i, a := range out[idx:] {
		if strings.HasPrefix(a, "@") {
			set = a[1:]
			idx += i
			out = append(out[:idx], out[idx+1:]...)
			break
		}
	}

	setArgs, _ := config.GetStringSlice(out[1]+"."+set, nil)
	for _, arg := range setArgs {
		parts := strings.Fields(arg)
		out = append(out[:idx], append(parts, out[idx:]...)...)
		idx += len(parts)
	}

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, out)
	return out
}

// ensureCacheDir pre-creates the cache directory when the selected backend
// keeps its data there.
func ensureCacheDir(args []string, env config.Env) error {
	switch storageArg(args, env.Storage) {
	case "disk", "sqlite":
		_, _, err := cacheutil.EnsureBaseDir(env.CacheDir)
		return err
	}
	return nil
}

// storageArg returns the value of the last --storage in args, or def.
func storageArg(args []string, def string) string {
	backend := def
	for i, a := range args {
		switch {
		case strings.HasPrefix(a, "--storage="):
			backend = strings.TrimPrefix(a, "--storage=")
		case a == "--storage" && i+1 < len(args):
			backend = args[i+1]
		}
	}
	return backend
}
