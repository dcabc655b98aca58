// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package graph defines the typed property graph model that the analysis
// engine projects source code into: nodes (modules, functions, scopes,
// calls, variables, types, ...) and edges (CONTAINS, CALLS, DECLARES,
// ASSIGNED_FROM, DERIVES_FROM, ...).
//
// This package owns the closed NodeKind/EdgeKind enums, the Node/Edge
// structs, and the GraphBackend interface that every other package in this
// module depends on but never implements directly. Two reference backends
// ship alongside it:
//
//   - graph/memstore: an in-memory backend, used as the default and by the
//     test suite.
//   - graph/sqlitestore: a SQLite-persisted backend for standalone use.
//
// Neither backend owns durability guarantees beyond its own process; callers
// that need a canonical, externally-queryable store persist through
// graph/sqlitestore.
package graph
