// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/grafema/internal/errors"
)

// bashCompletionTemplate is the bash completion script for grafema.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for grafema
# Installation:
#   source <(grafema completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(grafema completion bash)' >> ~/.bashrc

_grafema_completion() {
    local cur commands
    commands="init index status reset completion"
    cur="${COMP_WORDS[COMP_CWORD]}"

    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--path --force --index-only --service --parallel --max-workers --db --in-memory --metrics-addr --json --no-color --quiet" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--path --db --json --no-color" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--path --db --yes --no-color" -- ${cur}) )
            fi
            ;;
        init)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--path --force --no-color" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _grafema_completion grafema
`

// zshCompletionTemplate is the zsh completion script for grafema.
const zshCompletionTemplate = `#compdef grafema

# Zsh completion script for grafema
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      grafema completion zsh > "${fpath[1]}/_grafema"

_grafema() {
    local -a commands
    commands=(
        'init:Create .grafema/config.yaml'
        'index:Run the analysis pipeline'
        'status:Show indexed node/edge counts'
        'reset:Clear the graph backend'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                index)
                    _arguments \
                        '--path[Project root to index]:directory:_files -/' \
                        '--force[Clear the backend and reanalyze fully]' \
                        '--index-only[Stop after the Indexing phase]' \
                        '--service[Only index the named service]:service:' \
                        '--parallel[Parse files on a worker pool]' \
                        '--max-workers[Worker pool size]:workers:' \
                        '--db[Path to a SQLite graph database]:file:_files' \
                        '--in-memory[Discard the graph on exit]' \
                        '--metrics-addr[Serve Prometheus metrics]:address:' \
                        '--json[Output a JSON summary]' \
                        '--no-color[Disable colored output]' \
                        '--quiet[Suppress progress output]'
                    ;;
                status)
                    _arguments \
                        '--path[Project root to inspect]:directory:_files -/' \
                        '--db[Path to a SQLite graph database]:file:_files' \
                        '--json[Output as JSON]' \
                        '--no-color[Disable colored output]'
                    ;;
                reset)
                    _arguments \
                        '--path[Project root to reset]:directory:_files -/' \
                        '--db[Path to a SQLite graph database]:file:_files' \
                        '--yes[Confirm the reset]' \
                        '--no-color[Disable colored output]'
                    ;;
                init)
                    _arguments \
                        '--path[Directory to initialize]:directory:_files -/' \
                        '--force[Overwrite an existing config]' \
                        '--no-color[Disable colored output]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_grafema
`

// fishCompletionTemplate is the fish completion script for grafema.
const fishCompletionTemplate = `# Fish completion script for grafema
# Installation:
#   grafema completion fish | source
#   grafema completion fish > ~/.config/fish/completions/grafema.fish

complete -c grafema -f -n "__fish_use_subcommand" -a "init" -d "Create .grafema/config.yaml"
complete -c grafema -f -n "__fish_use_subcommand" -a "index" -d "Run the analysis pipeline"
complete -c grafema -f -n "__fish_use_subcommand" -a "status" -d "Show indexed node/edge counts"
complete -c grafema -f -n "__fish_use_subcommand" -a "reset" -d "Clear the graph backend (destructive!)"
complete -c grafema -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

complete -c grafema -l version -d "Show version and exit"

complete -c grafema -n "__fish_seen_subcommand_from index" -l path -d "Project root to index" -r
complete -c grafema -n "__fish_seen_subcommand_from index" -l force -d "Clear the backend and reanalyze fully"
complete -c grafema -n "__fish_seen_subcommand_from index" -l index-only -d "Stop after the Indexing phase"
complete -c grafema -n "__fish_seen_subcommand_from index" -l service -d "Only index the named service" -r
complete -c grafema -n "__fish_seen_subcommand_from index" -l db -d "Path to a SQLite graph database" -r
complete -c grafema -n "__fish_seen_subcommand_from index" -l in-memory -d "Discard the graph on exit"
complete -c grafema -n "__fish_seen_subcommand_from index" -l metrics-addr -d "Serve Prometheus metrics" -r
complete -c grafema -n "__fish_seen_subcommand_from index" -l json -d "Output a JSON summary"

complete -c grafema -n "__fish_seen_subcommand_from status" -l path -d "Project root to inspect" -r
complete -c grafema -n "__fish_seen_subcommand_from status" -l db -d "Path to a SQLite graph database" -r
complete -c grafema -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"

complete -c grafema -n "__fish_seen_subcommand_from reset" -l path -d "Project root to reset" -r
complete -c grafema -n "__fish_seen_subcommand_from reset" -l db -d "Path to a SQLite graph database" -r
complete -c grafema -n "__fish_seen_subcommand_from reset" -l yes -d "Confirm the reset"

complete -c grafema -n "__fish_seen_subcommand_from init" -l path -d "Directory to initialize" -r
complete -c grafema -n "__fish_seen_subcommand_from init" -l force -d "Overwrite an existing config"

complete -c grafema -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c grafema -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c grafema -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes `grafema completion <shell>`, printing a
// ready-to-source completion script for bash, zsh, or fish.
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema completion <bash|zsh|fish>

Generates a shell completion script.

Examples:
  source <(grafema completion bash)
  grafema completion zsh > "${fpath[1]}/_grafema"
  grafema completion fish > ~/.config/fish/completions/grafema.fish
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"completion requires exactly one argument",
			"no shell name was given",
			"run 'grafema completion bash', 'grafema completion zsh', or 'grafema completion fish'",
		), false)
	}

	switch fs.Arg(0) {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"unsupported shell",
			fmt.Sprintf("shell %q is not supported; valid options: bash, zsh, fish", fs.Arg(0)),
			"run 'grafema completion bash', 'grafema completion zsh', or 'grafema completion fish'",
		), false)
	}
}
