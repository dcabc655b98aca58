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

package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	testhelpers "github.com/kraklabs/grafema/internal/testing"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memstore"
	"github.com/kraklabs/grafema/pkg/plugin"
)

func pc(store *memstore.Store) plugin.Context {
	return plugin.Context{Ctx: context.Background(), Backend: store}
}

func issueCodes(issues []plugin.Issue) []string {
	out := make([]string, len(issues))
	for i, iss := range issues {
		out[i] = iss.Code
	}
	return out
}

func TestGraphConnectivity_FlagsOrphans(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedService(t, backend, "svc", "api")
	testhelpers.SeedModule(t, backend, "mod", "index.ts")
	testhelpers.SeedEdge(t, backend, graph.Edge{Type: graph.EdgeContains, Src: "svc", Dst: "mod"})

	testhelpers.SeedFunction(t, backend, "fn_ok", "main", "index.ts", 1, 1)
	testhelpers.SeedEdge(t, backend, graph.Edge{Type: graph.EdgeDeclares, Src: "mod", Dst: "fn_ok"})

	testhelpers.SeedFunction(t, backend, "fn_orphan", "lost", "other.ts", 1, 1)
	testhelpers.SeedNode(t, backend, graph.Node{ID: "ext", Type: graph.KindExternal, Name: "lodash"})

	res, err := GraphConnectivityValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Len(t, res.Issues, 1, "only the non-EXTERNAL orphan is flagged")
	require.Equal(t, "ERR_UNREACHABLE_NODE", res.Issues[0].Code)
	require.Equal(t, "other.ts", res.Issues[0].File)
}

func TestGraphConnectivity_FollowsIncomingEdgesToo(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedService(t, backend, "svc", "api")
	testhelpers.SeedNode(t, backend, graph.Node{ID: "scope1", Type: graph.KindScope, Name: "if_statement[0]"})
	// Edge points INTO the root; a bidirectional walk still reaches scope1.
	testhelpers.SeedEdge(t, backend, graph.Edge{Type: graph.EdgeContains, Src: "scope1", Dst: "svc"})

	res, err := GraphConnectivityValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Empty(t, res.Issues)
}

func TestBrokenImport_FlagsUnlinkedRelativeImport(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedImport(t, backend, "imp1", "Missing", "src/a.ts", "./m", 1)

	res, err := BrokenImportValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Contains(t, issueCodes(res.Issues), "ERR_BROKEN_IMPORT")
}

func TestBrokenImport_SkipsExternalNamespaceAndTypeOnly(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedImport(t, backend, "imp_ext", "express", "a.ts", "express", 1)

	ns := graph.Node{ID: "imp_ns", Type: graph.KindImport, Name: "utils", File: "a.ts"}
	ns.SetAttr("importPath", "./utils")
	ns.SetAttr("namespace", true)
	testhelpers.SeedNode(t, backend, ns)

	typeOnly := graph.Node{ID: "imp_type", Type: graph.KindImport, Name: "Config", File: "a.ts"}
	typeOnly.SetAttr("importPath", "./config")
	typeOnly.SetAttr("typeOnly", true)
	testhelpers.SeedNode(t, backend, typeOnly)

	res, err := BrokenImportValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Empty(t, res.Issues)
}

func TestBrokenImport_FlagsUnresolvedCallsButNotGlobals(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedFunction(t, backend, "fn_main", "main", "a.ts", 1, 1)
	testhelpers.SeedCall(t, backend, "call_unknown", "fn_main", "doesNotExist", "a.ts", 2)
	testhelpers.SeedCall(t, backend, "call_global", "fn_main", "parseInt", "a.ts", 3)

	res, err := BrokenImportValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Equal(t, []string{"ERR_UNRESOLVED_CALL"}, issueCodes(res.Issues))
	require.Equal(t, "warning", res.Issues[0].Severity)
}

func TestBrokenImport_ResolvedCallPasses(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedFunction(t, backend, "fn", "f", "a.ts", 1, 1)
	testhelpers.SeedCall(t, backend, "call1", "fn", "f", "a.ts", 2)
	testhelpers.SeedEdge(t, backend, graph.Edge{Type: graph.EdgeCalls, Src: "call1", Dst: "fn"})

	res, err := BrokenImportValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Empty(t, res.Issues)
}

func TestEvalBan_FlagsEvalCalls(t *testing.T) {
	backend := testhelpers.SetupTestBackend(t)

	testhelpers.SeedFunction(t, backend, "fn_main", "main", "a.ts", 1, 1)
	testhelpers.SeedCall(t, backend, "call_eval", "fn_main", "eval", "a.ts", 2)
	testhelpers.SeedCall(t, backend, "call_ok", "fn_main", "parse", "a.ts", 3)
	testhelpers.SeedNode(t, backend, graph.Node{ID: "ctor_fn", Type: graph.KindCtorCall, Name: "Function", File: "a.ts"})

	res, err := EvalBanValidator{}.Execute(pc(backend))
	require.NoError(t, err)
	require.Len(t, res.Issues, 2)
	for _, iss := range res.Issues {
		require.Equal(t, "ERR_EVAL_USAGE", iss.Code)
		require.Equal(t, "error", iss.Severity)
	}
}
