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

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/grafema/pkg/facts"
)

// handlePropertyAccess is the property-access handler. It skips nodes
// that are actually the callee of a call_expression (those are owned by
// the call handler) and flattens chained member access (`a.b.c`) into a
// single fact with an ordered property path.
func (v *visitor) handlePropertyAccess(n *sitter.Node) {
	if parent := n.Parent(); parent != nil && parent.Type() == "call_expression" {
		// Wrapper pointers are not stable across lookups; the byte range
		// identifies the node.
		if fn := parent.ChildByFieldName("function"); fn != nil && fn.StartByte() == n.StartByte() && fn.EndByte() == n.EndByte() {
			return
		}
	}

	object := n.ChildByFieldName("object")
	property := n.ChildByFieldName("property")
	computed := false
	if property == nil {
		property = n.ChildByFieldName("index")
		computed = property != nil
	}

	var path []string
	root := object
	for root != nil && (root.Type() == "member_expression" || root.Type() == "subscript_expression") {
		if p := root.ChildByFieldName("property"); p != nil {
			path = append([]string{v.text(p)}, path...)
		}
		root = root.ChildByFieldName("object")
	}
	path = append(path, v.text(property))

	isPrivate := strings.HasPrefix(v.text(property), "#")
	objectName := v.text(root)

	v.bundle.PropertyAccess = append(v.bundle.PropertyAccess, facts.PropertyAccess{
		Pos:        v.pos(n),
		ScopePath:  v.scopePath(),
		ObjectName: objectName,
		PropPath:   path,
		IsPrivate:  isPrivate,
		Computed:   computed,
		Ordinal:    v.tracker.GetItemCounter("PROPERTY_ACCESS:" + objectName + "." + strings.Join(path, ".")),
	})

	if isPrivate {
		v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
			Pos:       v.pos(n),
			ScopePath: v.scopePath(),
			Kind:      "ACCESSES_PRIVATE",
			Subject:   v.text(root),
			Object:    v.text(property),
		})
	}

	v.walk(root)
}
