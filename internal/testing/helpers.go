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
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memstore"
)

// SetupTestBackend creates an in-memory graph.Backend for testing. The
// backend is automatically closed when the test finishes.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    backend := testing.SetupTestBackend(t)
//	    testing.SeedFunction(t, backend, "fn1", "handleAuth", "auth.ts", 10, 20)
//	}
func SetupTestBackend(t *testing.T) *memstore.Store {
	t.Helper()

	backend := memstore.New()
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return backend
}

// SeedNode adds an arbitrary pre-built node to backend, for kinds that
// have no dedicated seeder.
func SeedNode(t *testing.T, backend *memstore.Store, node graph.Node) {
	t.Helper()

	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed node %s: %v", node.ID, err)
	}
}

// SeedService adds a synthetic SERVICE node to backend.
func SeedService(t *testing.T, backend *memstore.Store, id, name string) {
	t.Helper()

	node := graph.Node{ID: id, Type: graph.KindService, Name: name}
	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed service %s: %v", id, err)
	}
}

// SeedExport adds a synthetic EXPORT node to backend.
func SeedExport(t *testing.T, backend *memstore.Store, id, name, file string) {
	t.Helper()

	node := graph.Node{ID: id, Type: graph.KindExport, Name: name, File: file}
	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed export %s: %v", id, err)
	}
}

// SeedFunction adds a synthetic FUNCTION node to backend.
//
// Example:
//
//	testing.SeedFunction(t, backend, "fn_123", "handleAuth", "auth.ts", 10, 25)
func SeedFunction(t *testing.T, backend *memstore.Store, id, name, file string, line, col int) {
	t.Helper()

	node := graph.Node{ID: id, Type: graph.KindFunction, Name: name, File: file, Line: line, Column: col}
	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed function %s: %v", id, err)
	}
}

// SeedModule adds a synthetic MODULE node to backend.
func SeedModule(t *testing.T, backend *memstore.Store, id, file string) {
	t.Helper()

	node := graph.Node{ID: id, Type: graph.KindModule, Name: file, File: file}
	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed module %s: %v", id, err)
	}
}

// SeedImport adds a synthetic IMPORT node to backend, with importPath
// and importedName attributes matching what pkg/builder's buildImports
// records (the imported name doubles as the local binding name).
func SeedImport(t *testing.T, backend *memstore.Store, id, name, file, importPath string, line int) {
	t.Helper()

	node := graph.Node{ID: id, Type: graph.KindImport, Name: name, File: file, Line: line}
	node.SetAttr("importPath", importPath)
	node.SetAttr("importedName", name)
	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed import %s: %v", id, err)
	}
}

// SeedCall adds a synthetic CALL node and a CONTAINS edge from caller to it.
func SeedCall(t *testing.T, backend *memstore.Store, id, callerID, calleeName, file string, line int) {
	t.Helper()

	node := graph.Node{ID: id, Type: graph.KindCall, Name: calleeName, File: file, Line: line}
	if err := backend.AddNode(context.Background(), node); err != nil {
		t.Fatalf("seed call %s: %v", id, err)
	}
	if err := backend.AddEdge(context.Background(), graph.Edge{Type: graph.EdgeContains, Src: callerID, Dst: id}); err != nil {
		t.Fatalf("seed call edge %s: %v", id, err)
	}
}

// SeedEdge adds edge to backend, failing the test on error.
func SeedEdge(t *testing.T, backend *memstore.Store, edge graph.Edge) {
	t.Helper()

	if err := backend.AddEdge(context.Background(), edge); err != nil {
		t.Fatalf("seed edge %s->%s: %v", edge.Src, edge.Dst, err)
	}
}
