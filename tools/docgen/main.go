// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Command docgen renders docs/commands/<cmd>.md into a man page under
// docs/man/share/man1 and a tldr page under docs/tldr. The tldr page is what
// `swcache <cmd> --tldr` shows.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

const (
	program = "swcache"
	homeURL = "https://github.com/staranto/swcache"
)

// page is the part of a command doc the tldr page is built from.
type page struct {
	Title    string
	Short    string
	Examples []example
}

type example struct {
	Desc string
	Cmd  string
}

func main() {
	root := flag.String("root", ".", "repo root")
	force := flag.Bool("force", false, "rewrite unchanged files")
	flag.Parse()

	if err := run(*root, *force); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(root string, force bool) error {
	docs, err := filepath.Glob(filepath.Join(root, "docs", "commands", "*.md"))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no command docs under %s", filepath.Join(root, "docs", "commands"))
	}

	manDir := filepath.Join(root, "docs", "man", "share", "man1")
	tldrDir := filepath.Join(root, "docs", "tldr")
	for _, dir := range []string{manDir, tldrDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
			return err
		}
	}

	for _, doc := range docs {
		raw, err := os.ReadFile(doc)
		if err != nil {
			return err
		}
		cmd := strings.TrimSuffix(filepath.Base(doc), ".md")
		name := program + "-" + cmd

		if err := write(filepath.Join(manDir, name+".1"), md2man.Render(raw), force); err != nil {
			return fmt.Errorf("man page for %s: %w", cmd, err)
		}
		tldr := renderTLDR(cmd, parsePage(raw))
		if err := write(filepath.Join(tldrDir, name+".md"), []byte(tldr), force); err != nil {
			return fmt.Errorf("tldr page for %s: %w", cmd, err)
		}
	}
	return nil
}

// write skips files whose content would not change unless force is set.
func write(path string, data []byte, force bool) error {
	if !force {
		if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
			return nil
		}
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec,mnd
}

// parsePage reads the H1 title, the first paragraph under "## Short
// description" and the "# desc" / command pairs in the fenced block under
// "## Quick examples".
func parsePage(raw []byte) page {
	var (
		p       page
		section string
		fenced  bool
		desc    string
	)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "```"):
			fenced = !fenced
			continue
		case !fenced && strings.HasPrefix(line, "## "):
			section = strings.ToLower(strings.TrimPrefix(line, "## "))
			continue
		case !fenced && strings.HasPrefix(line, "# "):
			if p.Title == "" {
				p.Title = strings.TrimPrefix(line, "# ")
			}
			continue
		}

		switch section {
		case "short description":
			if line == "" {
				if p.Short != "" {
					section = ""
				}
				continue
			}
			p.Short = strings.TrimSpace(p.Short + " " + line)
		case "quick examples":
			if !fenced || line == "" {
				continue
			}
			if strings.HasPrefix(line, "#") {
				desc = strings.TrimSpace(strings.TrimPrefix(line, "#"))
				continue
			}
			if desc == "" {
				desc = "Example"
			}
			p.Examples = append(p.Examples, example{Desc: desc, Cmd: strings.Join(strings.Fields(line), " ")})
			desc = ""
		}
	}
	return p
}

func renderTLDR(cmd string, p page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s-%s\n\n", program, cmd)

	summary := p.Short
	if summary == "" {
		summary = p.Title
	}
	if summary == "" {
		summary = program + " " + cmd
	}
	fmt.Fprintf(&b, "> %s\n> More information: %s.\n", summary, homeURL)

	exs := p.Examples
	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: program + " " + cmd + " --help"}}
	}
	for _, ex := range exs {
		fmt.Fprintf(&b, "\n- %s:\n\n`%s`\n", ex.Desc, ex.Cmd)
	}
	return b.String()
}
