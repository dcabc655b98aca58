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
	"context"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/grafema/internal/bootstrap"
	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/internal/output"
	"github.com/kraklabs/grafema/internal/ui"
	"github.com/kraklabs/grafema/pkg/graph"
)

// statusResult is the JSON-mode shape of `grafema status`.
type statusResult struct {
	ProjectID string                 `json:"projectId"`
	DataDir   string                 `json:"dataDir"`
	Connected bool                   `json:"connected"`
	Nodes     int                    `json:"nodes"`
	Edges     int                    `json:"edges"`
	NodeKinds map[graph.NodeKind]int `json:"nodeKinds,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// runStatus executes `grafema status`: open the project's persisted
// graph store and report node/edge counts, broken down by kind.
func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	projectRoot := fs.String("path", ".", "Project root to inspect")
	dbPath := fs.String("db", "", "Path to a SQLite graph database (default: ~/.grafema/data/<project-id>)")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema status [options]

Shows node/edge counts for a project's graph.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	globals := GlobalFlags{NoColor: *noColor, JSON: *jsonOutput}
	ui.InitColors(globals.NoColor)

	root, err := filepath.Abs(*projectRoot)
	if err != nil {
		errors.FatalError(errors.NewInputError("cannot resolve --path", err.Error(), "pass an existing directory"), globals.JSON)
	}
	projectID := projectIDFor(root)
	dataDir := projectDataDir(projectID, *dbPath)

	store, err := bootstrap.OpenProject(bootstrap.ProjectConfig{ProjectID: projectID, DataDir: dataDir}, nil)
	if err != nil {
		result := statusResult{ProjectID: projectID, DataDir: dataDir, Connected: false, Error: "project not indexed yet; run 'grafema index' first"}
		if globals.JSON {
			_ = output.JSON(result)
		} else {
			fmt.Printf("Project %q not indexed yet.\n", projectID)
			fmt.Println("Run 'grafema index' to build its graph.")
		}
		return
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	nodeCount, err := store.NodeCount(ctx)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot count nodes", err.Error(), "", err), globals.JSON)
	}
	edgeCount, err := store.EdgeCount(ctx)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot count edges", err.Error(), "", err), globals.JSON)
	}
	byKind, err := store.CountNodesByType(ctx, nil)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot count node kinds", err.Error(), "", err), globals.JSON)
	}

	result := statusResult{
		ProjectID: projectID, DataDir: dataDir, Connected: true,
		Nodes: nodeCount, Edges: edgeCount, NodeKinds: byKind,
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	printStatus(result)
}

// projectDataDir resolves the directory bootstrap.OpenProject should
// look in: the directory containing --db when given, otherwise
// ~/.grafema/data/<project-id>; it returns "" only when the home
// directory cannot be determined.
func projectDataDir(projectID, dbPath string) string {
	if dbPath != "" {
		return filepath.Dir(dbPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".grafema", "data", projectID)
}

func printStatus(result statusResult) {
	ui.Header("Grafema Project Status")
	fmt.Printf("Project ID: %s\n", result.ProjectID)
	if result.DataDir != "" {
		fmt.Printf("Data Dir:   %s\n", ui.DimText(result.DataDir))
	}
	fmt.Println()
	fmt.Printf("Nodes: %s\n", ui.CountText(result.Nodes))
	fmt.Printf("Edges: %s\n", ui.CountText(result.Edges))
	if len(result.NodeKinds) == 0 {
		return
	}
	fmt.Println()
	ui.SubHeader("By kind:")
	for kind, count := range result.NodeKinds {
		fmt.Printf("  %-20s %d\n", kind, count)
	}
}
