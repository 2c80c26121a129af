// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the process environment swcache reads outside of flags.
type Env struct {
	LogLevel string `env:"SWCACHE_LOG"       envDefault:"ERROR"`
	Config   string `env:"SWCACHE_CFG"`
	CacheDir string `env:"SWCACHE_CACHE_DIR"`
	Storage  string `env:"SWCACHE_STORAGE"   envDefault:"disk"`
}

// ParseEnv loads Env from the environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
