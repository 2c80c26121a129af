// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"

	"github.com/staranto/swcache/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	Env     config.Env
	// StartingDir is the working directory at startup. Relative manifest
	// and version file paths resolve against it.
	StartingDir string
}
