// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Dir resolves the base cache directory.
// Precedence:
//  1. override, if non-empty (SWCACHE_CACHE_DIR or --cache-dir)
//  2. os.UserCacheDir()/swcache
//
// Returns ("", false) if a base cannot be resolved.
func Dir(override string) (string, bool) {
	if override != "" {
		return override, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "swcache"), true
	}
	return "", false
}

// EnsureBaseDir creates the base cache directory if a base path can be
// resolved. Returns the path, whether it is usable, and an error if creation
// failed.
func EnsureBaseDir(override string) (string, bool, error) {
	base, ok := Dir(override)
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// EncodeKey hashes k with xxhash and returns a fixed-width hex string that is
// safe to use as a file name.
func EncodeKey(k string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(k))
}

// WriteAtomic writes data to path through a temp file and a rename, so
// readers see either the old or the new content.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Chmod(name, os.FileMode(0o600)); err != nil { //nolint:mnd
		_ = os.Remove(name)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// DirSize sums the size of every regular file below root.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to size %s: %w", root, err)
	}
	return total, nil
}
