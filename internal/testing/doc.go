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

// Package testing provides shared fixture builders for grafema's
// integration tests: an in-memory graph.Backend seeded with synthetic
// nodes/edges, so pkg/enrichment and pkg/validation tests don't each
// hand-roll their own fake graph.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    backend := testing.SetupTestBackend(t)
//	    testing.SeedFunction(t, backend, "fn1", "handleAuth", "auth.ts", 10, 20)
//
//	    funcs, err := backend.FindByType(context.Background(), graph.KindFunction)
//	    require.NoError(t, err)
//	    require.Len(t, funcs, 1)
//	}
package testing
