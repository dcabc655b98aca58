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

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/enrichment"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memstore"
	"github.com/kraklabs/grafema/pkg/plugin"
	"github.com/kraklabs/grafema/pkg/validation"
)

// fixedDiscovery is a Discovery plugin announcing one pre-built service.
type fixedDiscovery struct {
	svc plugin.Service
}

func (fixedDiscovery) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "fixed_discovery", Phase: plugin.PhaseDiscovery, Priority: 100}
}

func (d fixedDiscovery) Execute(pc plugin.Context) (plugin.Result, error) {
	pc.Manifest.Services = append(pc.Manifest.Services, d.svc)
	return plugin.Result{}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "entry.ts", `
import { util } from "./util";
export function main() { return util(); }
`)
	writeFile(t, dir, "util.ts", `export function util() { return 1; }`)

	store := memstore.New()
	registry := plugin.NewRegistry()
	registry.Register(fixedDiscovery{plugin.Service{
		Name: "app", RootPath: dir, Entrypoint: entry, Language: "typescript",
	}})
	registry.Register(enrichment.ImportExportLinker{})

	o := New(store, registry, nil)
	manifest, err := o.Run(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.False(t, manifest.Cancelled)
	require.Len(t, manifest.Services, 1)

	ctx := context.Background()
	entries, err := store.FindByType(ctx, graph.KindEntrypoint)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	modules, err := store.FindByType(ctx, graph.KindModule)
	require.NoError(t, err)
	require.Len(t, modules, 1, "util.ts reached through the import walk")

	fns, err := store.FindByType(ctx, graph.KindFunction)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(fns), 2)

	// The entry module's import of util resolves to util.ts's export.
	imports, err := store.FindByType(ctx, graph.KindImport)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	linked, err := store.GetOutgoingEdges(ctx, imports[0].ID, []graph.EdgeKind{graph.EdgeImportsFrom})
	require.NoError(t, err)
	require.Len(t, linked, 1)
}

// Importing a name the target module never
// exports leaves the IMPORT unlinked and Validation reports
// ERR_BROKEN_IMPORT.
func TestRun_BrokenImportScenario(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "entry.ts", `
import { Missing } from "./m";
export function main() { return 1; }
`)
	writeFile(t, dir, "m.ts", `export const Present = 1;`)

	store := memstore.New()
	registry := plugin.NewRegistry()
	registry.Register(fixedDiscovery{plugin.Service{
		Name: "app", RootPath: dir, Entrypoint: entry, Language: "typescript",
	}})
	registry.Register(enrichment.ImportExportLinker{})
	registry.Register(validation.BrokenImportValidator{})

	o := New(store, registry, nil)
	manifest, err := o.Run(context.Background(), dir, Options{})
	require.NoError(t, err)

	var codes []string
	for _, iss := range manifest.Issues {
		codes = append(codes, iss.Code)
	}
	require.Contains(t, codes, "ERR_BROKEN_IMPORT")
	require.True(t, manifest.HasErrors)
}

func TestRun_IndexOnlySkipsLaterPhases(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "entry.ts", `import { Missing } from "./m";`)
	writeFile(t, dir, "m.ts", `export const Present = 1;`)

	store := memstore.New()
	registry := plugin.NewRegistry()
	registry.Register(fixedDiscovery{plugin.Service{Name: "app", RootPath: dir, Entrypoint: entry}})
	registry.Register(validation.BrokenImportValidator{})

	o := New(store, registry, nil)
	manifest, err := o.Run(context.Background(), dir, Options{IndexOnly: true})
	require.NoError(t, err)
	for _, iss := range manifest.Issues {
		require.NotEqual(t, plugin.PhaseValidation, iss.Phase, "IndexOnly must not reach Validation")
	}
}

func TestRun_ForceClearsBackend(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.AddNode(context.Background(), graph.Node{
		ID: "stale", Type: graph.KindFunction, Name: "old",
	}))

	o := New(store, plugin.NewRegistry(), nil)
	_, err := o.Run(context.Background(), t.TempDir(), Options{Force: true})
	require.NoError(t, err)

	n, err := store.GetNode(context.Background(), "stale")
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(memstore.New(), plugin.NewRegistry(), nil)
	manifest, err := o.Run(ctx, t.TempDir(), Options{})
	require.NoError(t, err)
	require.True(t, manifest.Cancelled)
}

func TestRun_ServiceFilter(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "entry.ts", `export const a = 1;`)

	store := memstore.New()
	registry := plugin.NewRegistry()
	registry.Register(fixedDiscovery{plugin.Service{Name: "skipped", RootPath: dir, Entrypoint: entry}})

	o := New(store, registry, nil)
	_, err := o.Run(context.Background(), dir, Options{ServiceFilter: "other"})
	require.NoError(t, err)

	mods, err := store.FindByType(context.Background(), graph.KindEntrypoint)
	require.NoError(t, err)
	require.Empty(t, mods, "a filtered-out service is never indexed")
}
