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

package analyzer

import "github.com/kraklabs/grafema/pkg/facts"

// computeOverrides emits an OVERRIDES MiscEdge fact for every method a
// class redeclares from its (same-file) superclass, once the whole
// module's Classes/Functions have been collected — a class's Extends
// target may be declared anywhere in the file relative to the class
// itself, so this can't be decided while either is being walked.
func computeOverrides(bundle *facts.Bundle) {
	type methodKey struct{ class, name string }
	byClassMethod := make(map[methodKey]facts.Function)
	for _, fn := range bundle.Functions {
		if !fn.IsMethod || fn.ParentClass == "" {
			continue
		}
		byClassMethod[methodKey{fn.ParentClass, fn.Name}] = fn
	}

	declaredClass := make(map[string]bool, len(bundle.Classes))
	for _, c := range bundle.Classes {
		declaredClass[c.Name] = true
	}

	for _, c := range bundle.Classes {
		if c.Extends == "" || !declaredClass[c.Extends] {
			continue
		}
		for key, childFn := range byClassMethod {
			if key.class != c.Name {
				continue
			}
			parentFn, ok := byClassMethod[methodKey{c.Extends, key.name}]
			if !ok {
				continue
			}
			bundle.MiscEdges = append(bundle.MiscEdges, facts.MiscEdge{
				Pos:       childFn.Pos,
				ScopePath: childFn.ScopePath,
				Kind:      "OVERRIDES",
				Subject:   key.name,
				Meta: map[string]any{
					"childScopePath":  childFn.ScopePath,
					"childName":       childFn.Name,
					"parentScopePath": parentFn.ScopePath,
					"parentName":      parentFn.Name,
				},
			})
		}
	}
}

// computeOverloads pairs a body-less overload signature
// (function_signature/method_signature, facts.Function.IsSignature) with
// the single implementation sharing its scope and name, emitting
// HAS_OVERLOAD (impl -> signature) and IMPLEMENTS_OVERLOAD (signature ->
// impl) MiscEdge facts for each pair.
func computeOverloads(bundle *facts.Bundle) {
	type key struct{ scope, name string }
	groups := make(map[key][]int)
	for i, fn := range bundle.Functions {
		k := key{scopeKeyJoin(fn.ScopePath), fn.Name}
		groups[k] = append(groups[k], i)
	}

	for _, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}
		implIdx := -1
		var sigIdxs []int
		for _, i := range idxs {
			if bundle.Functions[i].IsSignature {
				sigIdxs = append(sigIdxs, i)
			} else if implIdx == -1 {
				implIdx = i
			}
		}
		if implIdx == -1 || len(sigIdxs) == 0 {
			continue
		}
		impl := bundle.Functions[implIdx]
		for _, si := range sigIdxs {
			sig := bundle.Functions[si]
			meta := map[string]any{
				"implScopePath": impl.ScopePath,
				"implName":      impl.Name,
				"sigScopePath":  sig.ScopePath,
				"sigName":       sig.Name,
			}
			bundle.MiscEdges = append(bundle.MiscEdges,
				facts.MiscEdge{Pos: impl.Pos, ScopePath: impl.ScopePath, Kind: "HAS_OVERLOAD", Meta: meta},
				facts.MiscEdge{Pos: sig.Pos, ScopePath: sig.ScopePath, Kind: "IMPLEMENTS_OVERLOAD", Meta: meta},
			)
		}
	}
}
