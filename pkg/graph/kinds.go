// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package graph

// NodeKind is a closed enumeration of every kind of node the analysis
// engine can emit.
type NodeKind string

const (
	KindModule       NodeKind = "MODULE"
	KindService      NodeKind = "SERVICE"
	KindEntrypoint   NodeKind = "ENTRYPOINT"
	KindFunction     NodeKind = "FUNCTION"
	KindMethod       NodeKind = "METHOD"
	KindParameter    NodeKind = "PARAMETER"
	KindScope        NodeKind = "SCOPE"
	KindBranch       NodeKind = "BRANCH"
	KindCase         NodeKind = "CASE"
	KindCall         NodeKind = "CALL"
	KindMethodCall   NodeKind = "METHOD_CALL"
	KindCtorCall     NodeKind = "CONSTRUCTOR_CALL"
	KindVariable     NodeKind = "VARIABLE"
	KindConstant     NodeKind = "CONSTANT"
	KindLiteral      NodeKind = "LITERAL"
	KindObjectLit    NodeKind = "OBJECT_LITERAL"
	KindArrayLit     NodeKind = "ARRAY_LITERAL"
	KindClass        NodeKind = "CLASS"
	KindInterface    NodeKind = "INTERFACE"
	KindType         NodeKind = "TYPE"
	KindTypeParam    NodeKind = "TYPE_PARAMETER"
	KindEnum         NodeKind = "ENUM"
	KindDecorator    NodeKind = "DECORATOR"
	KindExpression   NodeKind = "EXPRESSION"
	KindPropertyAcc  NodeKind = "PROPERTY_ACCESS"
	KindImport       NodeKind = "IMPORT"
	KindExport       NodeKind = "EXPORT"
	KindEventListen  NodeKind = "EVENT_LISTENER"
	KindIssue        NodeKind = "ISSUE"
	KindTryBlock     NodeKind = "TRY_BLOCK"
	KindCatchBlock   NodeKind = "CATCH_BLOCK"
	KindFinallyBlock NodeKind = "FINALLY_BLOCK"
	KindExternal     NodeKind = "EXTERNAL"
	KindBrowserAPI   NodeKind = "BROWSER_API"
)

// EdgeKind is a closed enumeration of every kind of edge the analysis
// engine can emit.
type EdgeKind string

const (
	EdgeContains           EdgeKind = "CONTAINS"
	EdgeDeclares           EdgeKind = "DECLARES"
	EdgeCalls              EdgeKind = "CALLS"
	EdgeCallsOn            EdgeKind = "CALLS_ON"
	EdgeHasCallback        EdgeKind = "HAS_CALLBACK"
	EdgeReturns            EdgeKind = "RETURNS"
	EdgeThrows             EdgeKind = "THROWS"
	EdgeRejects            EdgeKind = "REJECTS"
	EdgeCatchesFrom        EdgeKind = "CATCHES_FROM"
	EdgeAssignedFrom       EdgeKind = "ASSIGNED_FROM"
	EdgeDerivesFrom        EdgeKind = "DERIVES_FROM"
	EdgeReadsFrom          EdgeKind = "READS_FROM"
	EdgeUses               EdgeKind = "USES"
	EdgeHasScope           EdgeKind = "HAS_SCOPE"
	EdgeCaptures           EdgeKind = "CAPTURES"
	EdgeImportsFrom        EdgeKind = "IMPORTS_FROM"
	EdgeImports            EdgeKind = "IMPORTS"
	EdgeDependsOn          EdgeKind = "DEPENDS_ON"
	EdgeExtends            EdgeKind = "EXTENDS"
	EdgeImplements         EdgeKind = "IMPLEMENTS"
	EdgeOverrides          EdgeKind = "OVERRIDES"
	EdgeImplementsOverload EdgeKind = "IMPLEMENTS_OVERLOAD"
	EdgeHasOverload        EdgeKind = "HAS_OVERLOAD"
	EdgeHasType            EdgeKind = "HAS_TYPE"
	EdgeReturnsType        EdgeKind = "RETURNS_TYPE"
	EdgeConstrainedBy      EdgeKind = "CONSTRAINED_BY"
	EdgeUnionMember        EdgeKind = "UNION_MEMBER"
	EdgeIntersectsWith     EdgeKind = "INTERSECTS_WITH"
	EdgeInfers             EdgeKind = "INFERS"
	EdgeChainsFrom         EdgeKind = "CHAINS_FROM"
	EdgeAwaits             EdgeKind = "AWAITS"
	EdgeAliases            EdgeKind = "ALIASES"
	EdgeListensTo          EdgeKind = "LISTENS_TO"
	EdgeBindsThisTo        EdgeKind = "BINDS_THIS_TO"
	EdgeInvokes            EdgeKind = "INVOKES"
	EdgePassesArgument     EdgeKind = "PASSES_ARGUMENT"
	EdgeFlowsInto          EdgeKind = "FLOWS_INTO"
	EdgeSpreadsFrom        EdgeKind = "SPREADS_FROM"
	EdgeDeletes            EdgeKind = "DELETES"
	EdgeShadows            EdgeKind = "SHADOWS"
	EdgeMergesWith         EdgeKind = "MERGES_WITH"
	EdgeAccessesPrivate    EdgeKind = "ACCESSES_PRIVATE"
	EdgeDefaultsTo         EdgeKind = "DEFAULTS_TO"
	EdgeExtendsScopeWith   EdgeKind = "EXTENDS_SCOPE_WITH"
)
