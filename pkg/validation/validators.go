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
	"strings"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// ShadowingDetector flags a VARIABLE/CONSTANT whose name matches an
// ancestor scope's declaration, via the SHADOWS edges pkg/builder's
// miscEdgeBuilder already records.
type ShadowingDetector struct{}

// Metadata implements plugin.Plugin.
func (ShadowingDetector) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "shadowing_detector", Phase: plugin.PhaseValidation, Priority: 80}
}

// Execute implements plugin.Plugin.
func (ShadowingDetector) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	var variables []graph.Node
	for _, kind := range []graph.NodeKind{graph.KindVariable, graph.KindConstant} {
		nodes, err := backend.FindByType(ctx, kind)
		if err != nil {
			return plugin.Result{}, err
		}
		variables = append(variables, nodes...)
	}

	var result plugin.Result
	for _, v := range variables {
		shadows, err := backend.GetOutgoingEdges(ctx, v.ID, []graph.EdgeKind{graph.EdgeShadows})
		if err != nil {
			return plugin.Result{}, err
		}
		for range shadows {
			result.Issues = append(result.Issues, plugin.Issue{
				Code:     "WARN_SHADOWED_BINDING",
				Severity: "warning",
				Message:  "binding " + v.Name + " shadows an outer declaration",
				File:     v.File,
				Phase:    plugin.PhaseValidation,
				Plugin:   "shadowing_detector",
			})
		}
	}
	return result, nil
}

// EvalBanValidator flags any CALL to eval or the Function constructor
// used as a dynamic-code-execution sink.
type EvalBanValidator struct{}

// Metadata implements plugin.Plugin.
func (EvalBanValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "eval_ban_validator", Phase: plugin.PhaseValidation, Priority: 70}
}

var bannedCallNames = map[string]bool{"eval": true, "Function": true}

// Execute implements plugin.Plugin.
func (EvalBanValidator) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	calls, err := backend.FindByType(ctx, graph.KindCall)
	if err != nil {
		return plugin.Result{}, err
	}
	ctors, err := backend.FindByType(ctx, graph.KindCtorCall)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	flag := func(name, file string) {
		result.Issues = append(result.Issues, plugin.Issue{
			Code:     "ERR_EVAL_USAGE",
			Severity: "error",
			Message:  "dynamic code execution via " + name,
			File:     file,
			Phase:    plugin.PhaseValidation,
			Plugin:   "eval_ban_validator",
		})
	}
	for _, c := range calls {
		if bannedCallNames[c.Name] {
			flag(c.Name, c.File)
		}
	}
	for _, c := range ctors {
		if c.Name == "Function" {
			flag(c.Name, c.File)
		}
	}
	return result, nil
}

// sqlSinkNames are call/method names whose first-argument literal
// being a concatenated string (rather than a plain LITERAL fact) is a
// SQL-injection smell.
var sqlSinkNames = map[string]bool{"query": true, "execute": true, "exec": true}

// SQLInjectionValidator flags a query-like METHOD_CALL (plain CALL nodes
// are not examined) whose argument at position 0 derives from an
// EXPRESSION (string
// concatenation or template literal) rather than a LITERAL or a bound
// parameter placeholder.
type SQLInjectionValidator struct{}

// Metadata implements plugin.Plugin.
func (SQLInjectionValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "sql_injection_validator", Phase: plugin.PhaseValidation, Priority: 60}
}

// Execute implements plugin.Plugin.
func (SQLInjectionValidator) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	methodCalls, err := backend.FindByType(ctx, graph.KindMethodCall)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, mc := range methodCalls {
		if !sqlSinkNames[mc.Name] {
			continue
		}
		args, err := backend.GetOutgoingEdges(ctx, mc.ID, []graph.EdgeKind{graph.EdgePassesArgument})
		if err != nil || len(args) == 0 {
			continue
		}
		argNode, err := backend.GetNode(ctx, args[0].Dst)
		if err != nil || argNode == nil {
			continue
		}
		if argNode.Type == graph.KindExpression {
			result.Issues = append(result.Issues, plugin.Issue{
				Code:     "WARN_POSSIBLE_SQL_INJECTION",
				Severity: "warning",
				Message:  "query built from an expression rather than a literal/placeholder",
				File:     mc.File,
				Phase:    plugin.PhaseValidation,
				Plugin:   "sql_injection_validator",
			})
		}
	}
	return result, nil
}

// DataFlowValidator flags a variable-assignment fact whose
// ASSIGNED_FROM/DERIVES_FROM target node does not exist: the builder
// policy is "never invent a destination and log instead", so a
// dangling edge here means a cross-reference lookup failed silently
// during Analysis and should surface as an issue.
type DataFlowValidator struct{}

// Metadata implements plugin.Plugin.
func (DataFlowValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "data_flow_validator", Phase: plugin.PhaseValidation, Priority: 50}
}

var dataFlowEdgeKinds = []graph.EdgeKind{graph.EdgeAssignedFrom, graph.EdgeDerivesFrom}

// Execute implements plugin.Plugin.
func (DataFlowValidator) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	variables, err := backend.FindByType(ctx, graph.KindVariable)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, v := range variables {
		edges, err := backend.GetOutgoingEdges(ctx, v.ID, dataFlowEdgeKinds)
		if err != nil {
			return plugin.Result{}, err
		}
		for _, e := range edges {
			dst, err := backend.GetNode(ctx, e.Dst)
			if err != nil {
				return plugin.Result{}, err
			}
			if dst == nil {
				result.Issues = append(result.Issues, plugin.Issue{
					Code:     "ERR_DANGLING_DATA_FLOW_EDGE",
					Severity: "error",
					Message:  "edge " + string(e.Type) + " from " + v.Name + " has no destination node",
					File:     v.File,
					Phase:    plugin.PhaseValidation,
					Plugin:   "data_flow_validator",
				})
			}
		}
	}
	return result, nil
}

// TypeScriptDeadCodeValidator flags a non-exported FUNCTION/CLASS with
// no incoming CALLS/EXTENDS/IMPLEMENTS/IMPORTS_FROM edge at all: never
// referenced, and never exported for another module to reference.
type TypeScriptDeadCodeValidator struct{}

// Metadata implements plugin.Plugin.
func (TypeScriptDeadCodeValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "typescript_dead_code_validator", Phase: plugin.PhaseValidation, Priority: 40}
}

var deadCodeIncomingKinds = []graph.EdgeKind{graph.EdgeCalls, graph.EdgeExtends, graph.EdgeImplements, graph.EdgeImportsFrom}

// Execute implements plugin.Plugin.
func (TypeScriptDeadCodeValidator) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	exported := make(map[string]bool)
	exports, err := backend.FindByType(ctx, graph.KindExport)
	if err != nil {
		return plugin.Result{}, err
	}
	for _, exp := range exports {
		bound, err := backend.GetOutgoingEdges(ctx, exp.ID, []graph.EdgeKind{graph.EdgeContains})
		if err != nil {
			continue
		}
		for _, b := range bound {
			exported[b.Dst] = true
		}
	}

	var result plugin.Result
	for _, kind := range []graph.NodeKind{graph.KindFunction, graph.KindClass} {
		nodes, err := backend.FindByType(ctx, kind)
		if err != nil {
			return plugin.Result{}, err
		}
		for _, n := range nodes {
			if exported[n.ID] || strings.HasPrefix(n.Name, "_") {
				continue // exported, or conventionally-internal-but-intentional
			}
			in, err := backend.GetIncomingEdges(ctx, n.ID, deadCodeIncomingKinds)
			if err != nil {
				return plugin.Result{}, err
			}
			if len(in) > 0 {
				continue
			}
			result.Issues = append(result.Issues, plugin.Issue{
				Code:     "WARN_DEAD_CODE",
				Severity: "warning",
				Message:  n.Name + " is never called, extended, implemented, or imported",
				File:     n.File,
				Phase:    plugin.PhaseValidation,
				Plugin:   "typescript_dead_code_validator",
			})
		}
	}
	return result, nil
}
