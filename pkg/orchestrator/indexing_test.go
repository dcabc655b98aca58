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

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memstore"
	"github.com/kraklabs/grafema/pkg/plugin"
	"github.com/kraklabs/grafema/pkg/scope"
)

func writeIndexFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRunIndexing_WalksRelativeImports(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.ts")
	helper := filepath.Join(dir, "lib", "helper.ts")

	writeIndexFile(t, entry, `import { helper } from "./lib/helper";\nhelper();`)
	writeIndexFile(t, helper, `export function helper() {}`)

	store := memstore.New()
	o := New(store, plugin.NewRegistry(), nil)
	svc := plugin.Service{Name: "app", RootPath: dir, Entrypoint: entry, ServiceType: "default", Language: "typescript"}

	modules, issues, err := o.runIndexing(context.Background(), svc, Options{})
	if err != nil {
		t.Fatalf("runIndexing: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules (entry + helper), got %d: %+v", len(modules), modules)
	}

	entryNode, err := store.GetNode(context.Background(), scope.NormalizePath(entry))
	if err != nil || entryNode == nil {
		t.Fatalf("expected an ENTRYPOINT node for %s, got err=%v node=%v", entry, err, entryNode)
	}
	if entryNode.Type != graph.KindEntrypoint {
		t.Fatalf("expected KindEntrypoint, got %s", entryNode.Type)
	}

	helperNode, err := store.GetNode(context.Background(), scope.NormalizePath(helper))
	if err != nil || helperNode == nil {
		t.Fatalf("expected a MODULE node for %s, got err=%v node=%v", helper, err, helperNode)
	}
	if helperNode.Type != graph.KindModule {
		t.Fatalf("expected KindModule for the non-entry file, got %s", helperNode.Type)
	}

	edges, err := store.GetOutgoingEdges(context.Background(), scope.NormalizePath(entry), []graph.EdgeKind{graph.EdgeImports})
	if err != nil {
		t.Fatalf("GetOutgoingEdges: %v", err)
	}
	if len(edges) != 1 || edges[0].Dst != scope.NormalizePath(helper) {
		t.Fatalf("expected one IMPORTS edge entry->helper, got %+v", edges)
	}
}

func TestRunIndexing_IgnoresBareSpecifiers(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.ts")
	writeIndexFile(t, entry, `import express from "express";\nconst app = express();`)

	store := memstore.New()
	o := New(store, plugin.NewRegistry(), nil)
	svc := plugin.Service{Name: "app", RootPath: dir, Entrypoint: entry, ServiceType: "default", Language: "typescript"}

	modules, issues, err := o.runIndexing(context.Background(), svc, Options{})
	if err != nil {
		t.Fatalf("runIndexing: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues for an unresolvable bare specifier, got %+v", issues)
	}
	if len(modules) != 1 {
		t.Fatalf("expected only the entrypoint module (bare specifiers aren't followed), got %+v", modules)
	}
}

func TestRunIndexing_NoEntrypointIsANoop(t *testing.T) {
	dir := t.TempDir()
	store := memstore.New()
	o := New(store, plugin.NewRegistry(), nil)
	svc := plugin.Service{Name: "app", RootPath: dir, ServiceType: "default", Language: "typescript"}

	modules, issues, err := o.runIndexing(context.Background(), svc, Options{})
	if err != nil {
		t.Fatalf("runIndexing: %v", err)
	}
	if len(modules) != 0 || len(issues) != 0 {
		t.Fatalf("expected no modules/issues when Entrypoint is empty, got %+v / %+v", modules, issues)
	}

	count, err := store.NodeCount(context.Background())
	if err != nil {
		t.Fatalf("NodeCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the SERVICE node to be recorded, got %d nodes", count)
	}
}

func TestExtractSpecifiers(t *testing.T) {
	content := []byte(`
import a from "./a";
import b from "../b";
const c = require("./c");
export { x } from "./d";
import pkg from "some-package";
`)
	got := extractSpecifiers(content)
	want := map[string]bool{"./a": true, "../b": true, "./c": true, "./d": true, "some-package": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d specifiers, got %d: %v", len(want), len(got), got)
	}
	for _, spec := range got {
		if !want[spec] {
			t.Fatalf("unexpected specifier %q extracted", spec)
		}
	}

	relative := 0
	for _, spec := range got {
		if isRelativeImportSpecifier(spec) {
			relative++
		}
	}
	if relative != 4 {
		t.Fatalf("expected 4 relative specifiers out of %d total (bare package specifiers are filtered later, by isRelativeImportSpecifier), got %d", len(got), relative)
	}
}

func TestResolveModuleSpecifier_IndexConvention(t *testing.T) {
	dir := t.TempDir()
	writeIndexFile(t, filepath.Join(dir, "utils", "index.ts"), "export {}")

	resolved, ok := resolveModuleSpecifier(dir, "./utils")
	if !ok {
		t.Fatalf("expected ./utils to resolve via the index.ts convention")
	}
	want := filepath.Join(dir, "utils", "index.ts")
	if resolved != want {
		t.Fatalf("resolveModuleSpecifier = %q, want %q", resolved, want)
	}
}
