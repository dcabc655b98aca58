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
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/internal/ui"
	"github.com/kraklabs/grafema/pkg/config"
)

// runInit executes `grafema init`: scaffold .grafema/config.yaml in the
// target directory with the conventional defaults (config.Default()),
// refusing to overwrite an existing file unless --force is passed.
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	projectRoot := fs.String("path", ".", "Directory to initialize")
	force := fs.Bool("force", false, "Overwrite an existing .grafema/config.yaml")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema init [options]

Creates .grafema/config.yaml with default settings: parallel analysis
enabled, conventional excludes (node_modules, .git, dist, build,
coverage), and no explicit service list (Discovery infers one from
workspace globs or treats the project root as a single service).

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	ui.InitColors(*noColor)

	root, err := filepath.Abs(*projectRoot)
	if err != nil {
		errors.FatalError(errors.NewInputError("cannot resolve --path", err.Error(), "pass an existing directory"), false)
	}

	configPath := config.Path(root)
	if _, err := os.Stat(configPath); err == nil && !*force {
		errors.FatalError(errors.NewConfigError(
			"config already exists",
			configPath+" already exists",
			"pass --force to overwrite it",
			nil,
		), false)
	}

	if err := config.Save(root, config.Default()); err != nil {
		errors.FatalError(errors.NewPermissionError("cannot write config", err.Error(), "check directory permissions", err), false)
	}

	ui.Successf("created %s", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  grafema index         Run the analysis pipeline")
	fmt.Println("  grafema status        Inspect the resulting graph")
}
