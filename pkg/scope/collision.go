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

package scope

import (
	"fmt"
	"sort"
)

// Candidate is one pending id assignment: a base id plus the hints that
// would disambiguate it if it turns out to collide with a sibling.
type Candidate struct {
	BaseID       string
	Hints        []string // fed to ContentHash, kind-specific
	InsertOrder  int      // order this candidate was produced in, for stable tie-breaking
	ResolvedID   string   // filled in by Resolve
}

// CollisionResolver implements the two-phase graduated disambiguation:
// collect every candidate base id produced during a module's traversal,
// then assign final ids in one pass:
//
//  1. Base id unique within the file → final id is the base id, unchanged.
//  2. Base id collides, but hashes differ → final id is baseId + "[h:xxxxxxxx]".
//  3. Base id AND hash collide → sort the colliding group by insertion
//     order; id[0] = baseId+"[h:hash]", id[k>0] = baseId+"[h:hash]#k".
//
// This keeps ids stable across unrelated edits elsewhere in the file
// (only constructs that are themselves lexically identical ever pay the
// disambiguation cost) while guaranteeing uniqueness.
type CollisionResolver struct {
	candidates []*Candidate
}

// NewCollisionResolver returns an empty resolver ready to collect
// candidates for one module's traversal.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{}
}

// Add registers a pending id assignment and returns the Candidate so the
// caller can read ResolvedID back after Resolve runs.
func (r *CollisionResolver) Add(baseID string, hints ...string) *Candidate {
	c := &Candidate{BaseID: baseID, Hints: hints, InsertOrder: len(r.candidates)}
	r.candidates = append(r.candidates, c)
	return c
}

// Resolve assigns ResolvedID on every candidate added so far. It is safe
// to call once all candidates for a module have been collected; calling
// it again re-resolves from scratch (idempotent given the same inputs).
func (r *CollisionResolver) Resolve() {
	byBase := make(map[string][]*Candidate)
	for _, c := range r.candidates {
		byBase[c.BaseID] = append(byBase[c.BaseID], c)
	}

	for base, group := range byBase {
		if len(group) == 1 {
			group[0].ResolvedID = base
			continue
		}

		byHash := make(map[string][]*Candidate)
		for _, c := range group {
			h := ContentHash(c.Hints...)
			byHash[h] = append(byHash[h], c)
		}

		for hash, hgroup := range byHash {
			if len(hgroup) == 1 {
				hgroup[0].ResolvedID = fmt.Sprintf("%s[h:%s]", base, hash)
				continue
			}
			sort.Slice(hgroup, func(i, j int) bool {
				return hgroup[i].InsertOrder < hgroup[j].InsertOrder
			})
			for k, c := range hgroup {
				if k == 0 {
					c.ResolvedID = fmt.Sprintf("%s[h:%s]", base, hash)
				} else {
					c.ResolvedID = fmt.Sprintf("%s[h:%s]#%d", base, hash, k)
				}
			}
		}
	}
}
