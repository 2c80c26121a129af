// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const purgeDoc = "# swcache purge\n\n" +
	"## Short description\n\n" +
	"Delete cache\nnamespaces.\n\n" +
	"## Quick examples\n\n" +
	"```\n" +
	"# Delete one namespace\n" +
	"swcache purge precache-1.1.0\n" +
	"swcache   purge --all\n" +
	"```\n\n" +
	"## Flags and related docs\n\n" +
	"- `--all`: delete every namespace.\n"

func TestParsePage(t *testing.T) {
	p := parsePage([]byte(purgeDoc))

	assert.Equal(t, "swcache purge", p.Title)
	assert.Equal(t, "Delete cache namespaces.", p.Short)
	assert.Equal(t, []example{
		{Desc: "Delete one namespace", Cmd: "swcache purge precache-1.1.0"},
		{Desc: "Example", Cmd: "swcache purge --all"},
	}, p.Examples)
}

func TestRenderTLDR(t *testing.T) {
	got := renderTLDR("purge", parsePage([]byte(purgeDoc)))
	assert.Equal(t, "# swcache-purge\n\n"+
		"> Delete cache namespaces.\n"+
		"> More information: https://github.com/staranto/swcache.\n"+
		"\n- Delete one namespace:\n\n`swcache purge precache-1.1.0`\n"+
		"\n- Example:\n\n`swcache purge --all`\n", got)

	bare := renderTLDR("ls", page{Title: "swcache ls"})
	assert.Contains(t, bare, "> swcache ls\n")
	assert.Contains(t, bare, "- Show help for the command:\n\n`swcache ls --help`\n")
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	require.Error(t, run(root, false))

	commands := filepath.Join(root, "docs", "commands")
	require.NoError(t, os.MkdirAll(commands, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(commands, "purge.md"), []byte(purgeDoc), 0o600))
	require.NoError(t, run(root, false))

	man, err := os.ReadFile(filepath.Join(root, "docs", "man", "share", "man1", "swcache-purge.1"))
	require.NoError(t, err)
	assert.Contains(t, string(man), "swcache purge")

	tldr, err := os.ReadFile(filepath.Join(root, "docs", "tldr", "swcache-purge.md"))
	require.NoError(t, err)
	assert.Contains(t, string(tldr), "# swcache-purge\n")
}
