// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/config"
)

func init() {
	cfg, _ = config.Load("")
}

var (
	cfg config.Type

	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}

	examplesFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "examples",
		Usage:       "show usage examples",
		HideDefault: true,
	}
)

// NewStorageFlags are the flags every command touching cache storage takes.
// params[0] is the command name used to namespace config file lookups.
func NewStorageFlags(params ...string) (flags []cli.Flag) {
	ns := params[0]
	flags = []cli.Flag{
		withConfig(ns, &cli.StringFlag{
			Name:  "storage",
			Usage: "storage backend: memory, disk, sqlite or s3",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SWCACHE_STORAGE"),
			),
			Value: "disk",
			Validator: func(value string) error {
				return FlagValidators(value, StorageValidator)
			},
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "cache-dir",
			Usage: "directory for the disk and sqlite backends",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SWCACHE_CACHE_DIR"),
			),
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "bucket",
			Usage: "bucket for the s3 backend",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SWCACHE_BUCKET"),
			),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "prefix",
			Usage: "object key prefix for the s3 backend",
			Value: "swcache",
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "region",
			Usage: "region for the s3 backend",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_REGION"),
			),
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "profile",
			Usage: "shared config profile for the s3 backend",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_PROFILE"),
			),
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "endpoint",
			Usage: "custom endpoint for S3 compatible stores",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SWCACHE_S3_ENDPOINT"),
			),
		}),
	}
	return
}

// NewPolicyFlags are the flags that identify the application and the
// version being cached.
func NewPolicyFlags(params ...string) (flags []cli.Flag) {
	ns := params[0]
	flags = []cli.Flag{
		withConfig(ns, &cli.StringFlag{
			Name:  "scope",
			Usage: "application base URL, e.g. http://localhost:3000/app/",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SWCACHE_SCOPE"),
			),
			Value: "http://localhost:3000/",
			Validator: func(value string) error {
				return FlagValidators(value, AbsoluteURLValidator)
			},
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "manifest",
			Usage: "JSON precache manifest; the built-in list when empty",
		}),
		withConfig(ns, &cli.StringFlag{
			Name:    "version-tag",
			Aliases: []string{"V"},
			Usage:   "version the namespaces are named after",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SWCACHE_VERSION"),
			),
		}),
		withConfig(ns, &cli.StringFlag{
			Name:  "version-file",
			Usage: "file whose trimmed contents are the version",
		}),
		&cli.StringSliceFlag{
			Name:  "font-origin",
			Usage: "origins served stale-while-revalidate (repeatable)",
		},
		withConfig(ns, &cli.DurationFlag{
			Name:  "timeout",
			Usage: "network timeout per request",
			Value: defaultTimeout,
		}),
	}
	return
}

// NewOutputFlags are the result formatting flags.
func NewOutputFlags(params ...string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"color", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("color", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"output", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"sort", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"titles", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("titles", altsrc.StringSourcer(cfg.Source)),
			),
			Value: true,
		},
	}

	return
}

// withConfig adds namespaced and global config file sources to the flag's
// Sources chain, after any env sources already there.
func withConfig(ns string, flag cli.Flag) cli.Flag {
	return NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, flag)
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag cli.Flag) cli.Flag {
	if path == "" {
		return flag
	}
	name := flag.Names()[0]
	nsSrc := yaml.YAML(ns+"."+name, altsrc.StringSourcer(path))
	src := yaml.YAML(name, altsrc.StringSourcer(path))

	switch f := flag.(type) {
	case *cli.StringFlag:
		f.Sources.Chain = append(f.Sources.Chain, nsSrc, src)
	case *cli.DurationFlag:
		f.Sources.Chain = append(f.Sources.Chain, nsSrc, src)
	}
	return flag
}

// pathHas checks if the given executable is on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
