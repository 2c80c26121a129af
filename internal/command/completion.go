// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/swcache/internal/meta"
)

const bashCompletionScript = `# bash completion for swcache
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_swcache()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "serve install activate ls purge route diff completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local storage="--storage --cache-dir --bucket --prefix --region --profile --endpoint --tldr"
    local policy="--scope --manifest --version-tag -V --version-file --font-origin --timeout"
    local out="--color -c --filter -f --output -o --sort -s --titles -t"

    case "$cmd" in
        serve)
            local opts="$storage $policy --listen -l --upstream"
            ;;
        install|activate)
            local opts="$storage $policy $out"
            ;;
        ls)
            local opts="$storage $policy $out --examples"
            ;;
        purge)
            local opts="$storage $policy $out --all --stale --examples"
            ;;
        route)
            local opts="$storage $policy $out --mode -m --method --examples"
            ;;
        diff)
            local opts="$storage $policy --mode -m --method --color -c"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$storage"
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
            return 0
            ;;
        --storage)
            COMPREPLY=( $(compgen -W "memory disk sqlite s3" -- "$cur") )
            return 0
            ;;
        --mode|-m)
            COMPREPLY=( $(compgen -W "navigate no-cors cors same-origin" -- "$cur") )
            return 0
            ;;
        --manifest|--version-file)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
        --cache-dir)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _swcache swcache
`

const zshCompletionScript = `#compdef swcache

_swcache() {
  local -a cmds
  cmds=(
    'serve:run the caching proxy'
    'install:precache the manifest for the current version'
    'activate:delete namespaces left by other versions'
    'ls:list namespaces or the entries of one'
    'purge:delete namespaces'
    'route:show how a URL would be served'
    'diff:compare a cached response with the live one'
    'completion:generate shell completion script'
  )

  local -a storage
  storage=(
  '--storage[storage backend]:backend:(memory disk sqlite s3)'
  '--cache-dir[cache directory]:dir:_directories'
  '--bucket[s3 bucket]:bucket'
  '--prefix[s3 key prefix]:prefix'
  '--region[s3 region]:region'
  '--profile[shared config profile]:profile'
  '--endpoint[s3 endpoint]:url'
  '--tldr[show tldr page]'
  )

  local -a policy
  policy=(
  '--scope[application base URL]:url'
  '--manifest[precache manifest]:file:_files'
  '(-V --version-tag)'{-V,--version-tag}'[version]:version'
  '--version-file[version file]:file:_files'
  '*--font-origin[font origin]:origin'
  '--timeout[network timeout]:duration'
  )

  local -a out
  out=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  local -a req
  req=(
  '(-m --mode)'{-m,--mode}'[request mode]:mode:(navigate no-cors cors same-origin)'
  '--method[request method]:method'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'swcache commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    serve)
      _arguments -C $storage $policy \
        '(-l --listen)'{-l,--listen}'[listen address]:addr' \
        '--upstream[origin server]:url'
      ;;
    install|activate)
      _arguments -C $storage $policy $out
      ;;
    ls)
      _arguments -C $storage $policy $out '--examples[show examples]' '::namespace'
      ;;
    purge)
      _arguments -C $storage $policy $out \
        '--all[every namespace]' \
        '--stale[namespaces of other versions]' \
        '--examples[show examples]' \
        '*::namespace'
      ;;
    route)
      _arguments -C $storage $policy $out $req '--examples[show examples]' '*:url'
      ;;
    diff)
      _arguments -C $storage $policy $req \
        '(-c --color)'{-c,--color}'[enable colored diff]' \
        ':url'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $storage
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _swcache swcache
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}

	shell := cmd.Args().First()
	if shell == "" {
		// Try to detect from SHELL.
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		fmt.Fprintln(os.Stderr, "usage: swcache completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "swcache completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
