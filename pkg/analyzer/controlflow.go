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

// builtinErrorClasses is the closed set of built-in error constructors the
// micro-tracer and throw/reject classification recognize without
// resolving an import.
var builtinErrorClasses = map[string]bool{
	"Error": true, "TypeError": true, "RangeError": true,
	"SyntaxError": true, "ReferenceError": true, "EvalError": true,
	"URIError": true, "AggregateError": true,
}

// computeControlFlow fills in bundle.Functions[i].ControlFlow for every
// function, once the whole module has been traversed: a function's
// branch/loop/throw/try/return/logical-op children are attributed by
// nesting the fact's scope path under the function's own scope key
// (ScopePath+Name), the same convention
// pkg/builder's nearestFunctionKey uses to resolve RETURNS/THROWS owners.
func computeControlFlow(bundle *facts.Bundle) {
	keys := make([]string, len(bundle.Functions))
	byKey := make(map[string]int, len(bundle.Functions))
	for i, fn := range bundle.Functions {
		k := scopeKeyJoin(append(append([]string{}, fn.ScopePath...), fn.Name))
		keys[i] = k
		byKey[k] = i
	}

	owner := func(scopePath []string) (int, bool) {
		for end := len(scopePath); end > 0; end-- {
			if idx, ok := byKey[scopeKeyJoin(scopePath[:end])]; ok {
				return idx, true
			}
		}
		return 0, false
	}

	cf := make([]facts.ControlFlow, len(bundle.Functions))

	branchCount := make([]int, len(bundle.Functions))
	caseCount := make([]int, len(bundle.Functions))
	loopCount := make([]int, len(bundle.Functions))
	logicalCount := make([]int, len(bundle.Functions))

	for _, br := range bundle.Branches {
		idx, ok := owner(br.ScopePath)
		if !ok {
			continue
		}
		cf[idx].HasBranches = true
		if br.Kind == "case" || br.Kind == "default" {
			caseCount[idx]++
		} else {
			branchCount[idx]++
		}
	}

	for _, lp := range bundle.Loops {
		idx, ok := owner(lp.ScopePath)
		if !ok {
			continue
		}
		cf[idx].HasLoops = true
		loopCount[idx]++
	}

	for _, lo := range bundle.LogicalOps {
		idx, ok := owner(lo.ScopePath)
		if !ok {
			continue
		}
		logicalCount[idx]++
	}

	for _, tb := range bundle.TryBlocks {
		idx, ok := owner(tb.ScopePath)
		if !ok {
			continue
		}
		cf[idx].HasTryCatch = true
	}

	// A return is "early" when it is nested deeper than the function's own
	// top-level body, i.e. inside a branch/loop/try/catch rather than the
	// last statement of the function.
	functionDepth := make([]int, len(bundle.Functions))
	for i, fn := range bundle.Functions {
		functionDepth[i] = len(fn.ScopePath) + 1 // + the function's own name segment
	}
	returnCount := make([]int, len(bundle.Functions))
	for _, ret := range bundle.Returns {
		idx, ok := owner(ret.ScopePath)
		if !ok {
			continue
		}
		returnCount[idx]++
		if len(ret.ScopePath) > functionDepth[idx] {
			cf[idx].HasEarlyReturn = true
		}
	}
	for i := range cf {
		if returnCount[i] > 1 {
			cf[i].HasEarlyReturn = true
		}
	}

	for _, th := range bundle.Throws {
		idx, ok := owner(th.ScopePath)
		if !ok {
			continue
		}
		switch {
		case th.Pattern == "executor_reject" || th.Pattern == "promise_reject":
			// A rejection call, not a thrown statement: the function can
			// reject but HasAsyncThrow stays reserved for actual throws
			// inside async bodies.
			cf[idx].CanReject = true
			if th.ErrorClass != "" && builtinErrorClasses[th.ErrorClass] {
				cf[idx].RejectedBuiltinErrors = appendUnique(cf[idx].RejectedBuiltinErrors, th.ErrorClass)
			}
		case th.IsAsync:
			cf[idx].HasAsyncThrow = true
			cf[idx].CanReject = true
			if th.ErrorClass != "" && builtinErrorClasses[th.ErrorClass] {
				cf[idx].RejectedBuiltinErrors = appendUnique(cf[idx].RejectedBuiltinErrors, th.ErrorClass)
			}
		default:
			cf[idx].HasThrow = true
			if th.ErrorClass != "" && builtinErrorClasses[th.ErrorClass] {
				cf[idx].ThrownBuiltinErrors = appendUnique(cf[idx].ThrownBuiltinErrors, th.ErrorClass)
			}
		}
	}

	for _, me := range bundle.MiscEdges {
		if me.Kind != "INVOKES_PARAM" {
			continue
		}
		idx, ok := owner(me.ScopePath)
		if !ok {
			continue
		}
		paramIdx, _ := me.Meta["paramIndex"].(int)
		cf[idx].InvokesParamIndexes = append(cf[idx].InvokesParamIndexes, paramIdx)
		cf[idx].InvokesParamBindings = append(cf[idx].InvokesParamBindings, me.Subject)
	}

	for i := range cf {
		cf[i].CyclomaticComplexity = 1 + branchCount[i] + loopCount[i] + caseCount[i] + logicalCount[i]
		bundle.Functions[i].ControlFlow = cf[i]
	}
}

func appendUnique(s []string, v string) []string {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}

// scopeKeyJoin mirrors pkg/builder's scopeKey convention (segments joined
// with a trailing "/" each) so owner-lookup matches the same scope-path
// prefixes the Graph Builder resolves RETURNS/THROWS edges against.
func scopeKeyJoin(segs []string) string {
	s := ""
	for _, seg := range segs {
		s += seg + "/"
	}
	return s
}
