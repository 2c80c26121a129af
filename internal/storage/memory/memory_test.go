// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"testing"

	"github.com/staranto/swcache/internal/storage"
	"github.com/staranto/swcache/internal/storage/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return New() })
}
