// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/aws"
	"github.com/staranto/swcache/internal/cacheutil"
	"github.com/staranto/swcache/internal/config"
	"github.com/staranto/swcache/internal/fetch"
	"github.com/staranto/swcache/internal/manifest"
	"github.com/staranto/swcache/internal/meta"
	"github.com/staranto/swcache/internal/output"
	"github.com/staranto/swcache/internal/policy"
	"github.com/staranto/swcache/internal/storage"
	"github.com/staranto/swcache/internal/storage/disk"
	"github.com/staranto/swcache/internal/storage/memory"
	"github.com/staranto/swcache/internal/storage/s3"
	"github.com/staranto/swcache/internal/storage/sqlite"
	"github.com/staranto/swcache/internal/version"
)

const (
	defaultTimeout = 30 * time.Second

	// sqliteFile is created under the cache directory.
	sqliteFile = "swcache.db"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr swcache <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "swcache", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// CommandBuilder constructs a cli.Command for the subcommands using a
// consistent pattern. It wires metadata, adds the tldr flag and the storage
// flags, and runs GlobalFlagsValidator before the action.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	// Policy adds the scope, manifest and version flags.
	Policy bool
	// Output adds the result formatting flags.
	Output bool
	// Examples are shown by --examples.
	Examples [][2]string
	Action func(context.Context, *cli.Command) error
	Meta   meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{tldrFlag}, cb.Flags...)
	flags = append(flags, NewStorageFlags(cb.Name)...)
	if cb.Policy {
		flags = append(flags, NewPolicyFlags(cb.Name)...)
	}
	if cb.Output {
		flags = append(flags, NewOutputFlags(cb.Name)...)
	}
	if len(cb.Examples) > 0 {
		flags = append(flags, examplesFlag)
	}

	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			m := GetMeta(c)
			if len(m.Args) > 1 {
				log.Debugf("Executing action for %v", m.Args[1:])
			}
			if ShortCircuitTLDR(ctx, c, cb.Name) {
				return nil
			}
			if len(cb.Examples) > 0 && c.Bool("examples") {
				output.DumpExamples(ctx, c, cb.Examples)
				return nil
			}
			return cb.Action(ctx, c)
		},
	}
}

// OpenStorage opens the backend selected by --storage. The returned closer
// is never nil.
func OpenStorage(ctx context.Context, cmd *cli.Command) (storage.Storage, io.Closer, error) {
	kind := cmd.String("storage")
	log.Debugf("storage: %s", kind)

	switch kind {
	case "memory":
		return memory.New(), nopCloser{}, nil

	case "disk", "sqlite":
		dir, ok, err := cacheutil.EnsureBaseDir(cmd.String("cache-dir"))
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, fmt.Errorf("no cache directory; set --cache-dir")
		}
		if kind == "sqlite" {
			st, err := sqlite.Open(filepath.Join(dir, sqliteFile))
			if err != nil {
				return nil, nil, err
			}
			return st, st, nil
		}
		st, err := disk.New(dir)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil

	case "s3":
		var opts []aws.Option
		if r := cmd.String("region"); r != "" {
			opts = append(opts, aws.WithRegion(r))
		}
		if p := cmd.String("profile"); p != "" {
			opts = append(opts, aws.WithProfile(p))
		}
		awsCfg, err := aws.LoadAWSConfig(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		client := aws.NewS3(awsCfg, aws.WithS3Endpoint(cmd.String("endpoint")))
		st, err := s3.New(client, cmd.String("bucket"), cmd.String("prefix"))
		if err != nil {
			return nil, nil, err
		}
		return st, nopCloser{}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend: %s", kind)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ResolveVersion returns --version-tag, else the trimmed contents of
// --version-file, else the build version.
func ResolveVersion(cmd *cli.Command) (string, error) {
	if v := cmd.String("version-tag"); v != "" {
		return v, nil
	}
	if path := cmd.String("version-file"); path != "" {
		return readVersionFile(resolvePath(cmd, path))
	}
	return version.Version, nil
}

func readVersionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read version file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("version file is empty: %s", path)
	}
	return v, nil
}

// resolvePath makes relative paths relative to the starting directory.
func resolvePath(cmd *cli.Command, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if sd := GetMeta(cmd).StartingDir; sd != "" {
		return filepath.Join(sd, path)
	}
	return path
}

// Scope parses --scope.
func Scope(cmd *cli.Command) (*url.URL, error) {
	u, err := url.Parse(cmd.String("scope"))
	if err != nil {
		return nil, fmt.Errorf("invalid scope: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// FontOrigins returns --font-origin, else font_origins from the config file.
// An empty result means the engine defaults.
func FontOrigins(cmd *cli.Command) []string {
	if origins := cmd.StringSlice("font-origin"); len(origins) > 0 {
		return origins
	}
	origins, err := config.GetStringSlice("font_origins", nil)
	if err != nil {
		log.WithError(err).Warn("ignoring font_origins")
		return nil
	}
	return origins
}

// BuildEngine assembles a policy engine for version from the policy flags.
func BuildEngine(cmd *cli.Command, st storage.Storage, ver string, fetcher fetch.Fetcher) (*policy.Engine, error) {
	scope, err := Scope(cmd)
	if err != nil {
		return nil, err
	}

	var m *manifest.Manifest
	if path := cmd.String("manifest"); path != "" {
		if m, err = manifest.Load(resolvePath(cmd, path)); err != nil {
			return nil, err
		}
	}

	if fetcher == nil {
		fetcher = fetch.NewClient(cmd.Duration("timeout"))
	}

	return policy.New(policy.Options{
		Version:     ver,
		Scope:       scope,
		Manifest:    m,
		Storage:     st,
		Fetcher:     fetcher,
		FontOrigins: FontOrigins(cmd),
	})
}
