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
)

// runReset executes `grafema reset`: delete a project's persisted
// graph data directory. Destructive, so it refuses to run without
// --yes.
func runReset(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	projectRoot := fs.String("path", ".", "Project root whose graph should be reset")
	dbPath := fs.String("db", "", "Path to a SQLite graph database (default: ~/.grafema/data/<project-id>)")
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema reset [options]

Deletes all indexed data for a project. This is useful before a full
re-index to guarantee a clean slate.

WARNING: This operation is destructive and cannot be undone.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	ui.InitColors(*noColor)

	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"reset requires confirmation",
			"no --yes flag was passed",
			"re-run with --yes to confirm you want to delete all indexed data",
		), false)
	}

	root, err := filepath.Abs(*projectRoot)
	if err != nil {
		errors.FatalError(errors.NewInputError("cannot resolve --path", err.Error(), "pass an existing directory"), false)
	}
	projectID := projectIDFor(root)
	dataDir := projectDataDir(projectID, *dbPath)

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		fmt.Printf("No indexed data found for project %q.\n", projectID)
		return
	}

	fmt.Printf("Resetting project %q (deleting %s)...\n", projectID, dataDir)
	if err := os.RemoveAll(dataDir); err != nil {
		errors.FatalError(errors.NewPermissionError("cannot delete project data", err.Error(), "check directory permissions", err), false)
	}

	ui.Success("reset complete; all indexed data has been deleted")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  grafema index --force    Reindex the project")
}
