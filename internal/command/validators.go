// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
)

// GlobalFlagsValidator checks combinations of flags no single validator can
// see.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.String("storage") == "s3" && c.String("bucket") == "" {
		return errors.New("--bucket is required with --storage=s3")
	}
	if c.IsSet("version-tag") && c.IsSet("version-file") {
		return errors.New("--version-tag and --version-file are mutually exclusive")
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	return oneOf(value, "text", "json", "yaml")
}

func StorageValidator(value any) error {
	return oneOf(value, "memory", "disk", "sqlite", "s3")
}

// AbsoluteURLValidator requires an http or https URL with a host.
func AbsoluteURLValidator(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
}

func oneOf(value any, valid ...string) error {
	s, _ := value.(string)
	if !slices.Contains(valid, s) {
		return fmt.Errorf("must be one of %v", valid)
	}
	return nil
}
