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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/grafema/pkg/facts"
)

// ExpressionEvaluator classifies an arbitrary expression node into an
// ExprKind/ExprSubKind pair plus the identifier names it reads from, used
// by every fact that stores "what does this value come from" (variable
// initializers, assignments, return values, object/array literal leaves).
// It is a pure function: no scope or graph state, only the node and its
// source text.
func classifyExpr(n *sitter.Node, text func(*sitter.Node) string) (facts.ExprKind, facts.ExprSubKind, []string) {
	if n == nil {
		return facts.ExprNone, "", nil
	}
	switch n.Type() {
	case "identifier":
		return facts.ExprVariable, "", []string{text(n)}
	case "call_expression":
		callee := n.ChildByFieldName("function")
		if callee != nil && callee.Type() == "member_expression" {
			return facts.ExprMethodCall, "", identifierLeaves(callee, text)
		}
		return facts.ExprCallSite, "", identifierLeaves(callee, text)
	case "string", "number", "true", "false", "null", "undefined", "regex":
		return facts.ExprLiteral, "", nil
	case "template_string":
		return facts.ExprExpression, facts.SubTemplate, identifierLeaves(n, text)
	case "binary_expression":
		// &&/||/?? live inside binary_expression in this grammar; they
		// classify as Logical, everything else as Binary.
		if op := n.ChildByFieldName("operator"); op != nil {
			switch text(op) {
			case "&&", "||", "??":
				return facts.ExprExpression, facts.SubLogical, binaryOperandNames(n, text)
			}
		}
		return facts.ExprExpression, facts.SubBinary, binaryOperandNames(n, text)
	case "unary_expression":
		return facts.ExprExpression, facts.SubUnary, identifierLeaves(n, text)
	case "ternary_expression":
		return facts.ExprExpression, facts.SubConditional, identifierLeaves(n, text)
	case "member_expression", "subscript_expression":
		return facts.ExprExpression, facts.SubMember, identifierLeaves(n, text)
	case "new_expression":
		return facts.ExprExpression, facts.SubNew, identifierLeaves(n, text)
	case "await_expression":
		inner := n.Child(int(n.ChildCount()) - 1)
		return classifyExpr(inner, text)
	default:
		return facts.ExprExpression, facts.SubFallback, identifierLeaves(n, text)
	}
}

// identifierLeaves walks n looking for bare identifier leaves, used to
// build the "source names" a derived value depends on.
func identifierLeaves(n *sitter.Node, text func(*sitter.Node) string) []string {
	if n == nil {
		return nil
	}
	var out []string
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == "identifier" {
			out = append(out, text(node))
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(n)
	return out
}

func binaryOperandNames(n *sitter.Node, text func(*sitter.Node) string) []string {
	left := identifierLeaves(n.ChildByFieldName("left"), text)
	right := identifierLeaves(n.ChildByFieldName("right"), text)
	return append(left, right...)
}

// returnExtractor classifies a return/yield's argument into one of
// {NONE, LITERAL, VARIABLE, CALL_SITE, METHOD_CALL, EXPRESSION} plus the
// sub-kind and the source identifier names the graph builder needs to
// draw DERIVES_FROM edges.
func (v *visitor) returnExtractor(arg *sitter.Node) (facts.ExprKind, facts.ExprSubKind, []string) {
	return classifyExpr(arg, v.text)
}

// conditionParser extracts constraint facts from an `if`/`case` test
// expression. `&&` chains contribute both sides' constraints, `||`
// chains of equality tests on one subject merge into a single `in`
// constraint, a bare identifier/member test is `truthy`, and `!x` is
// `falsy`. Loose equality is canonicalized to its strict form.
func (v *visitor) conditionParser(test *sitter.Node) []facts.ConstraintFact {
	if test == nil {
		return nil
	}
	switch test.Type() {
	case "parenthesized_expression":
		for i := 0; i < int(test.ChildCount()); i++ {
			c := test.Child(i)
			if c.Type() != "(" && c.Type() != ")" {
				return v.conditionParser(c)
			}
		}
		return nil

	case "identifier", "member_expression":
		return []facts.ConstraintFact{{Subject: v.text(test), Operator: "truthy"}}

	case "unary_expression":
		op := test.ChildByFieldName("operator")
		arg := test.ChildByFieldName("argument")
		if op == nil || v.text(op) != "!" {
			return nil
		}
		if arg != nil && (arg.Type() == "identifier" || arg.Type() == "member_expression") {
			return []facts.ConstraintFact{{Subject: v.text(arg), Operator: "falsy"}}
		}
		return negateConstraints(v.conditionParser(arg))

	case "binary_expression":
		opNode := test.ChildByFieldName("operator")
		left := test.ChildByFieldName("left")
		right := test.ChildByFieldName("right")
		if opNode == nil || left == nil || right == nil {
			return nil
		}
		switch op := v.text(opNode); op {
		case "&&":
			return append(v.conditionParser(left), v.conditionParser(right)...)
		case "||":
			return mergeOrConstraints(v.conditionParser(left), v.conditionParser(right))
		case "===", "==", "!==", "!=":
			if op == "==" {
				op = "==="
			}
			if op == "!=" {
				op = "!=="
			}
			subject := v.text(left)
			if left.Type() == "unary_expression" && v.text(left.Child(0)) == "typeof" {
				subject = v.text(left.ChildByFieldName("argument"))
				op = "typeof" + op
			}
			return []facts.ConstraintFact{{Subject: subject, Operator: op, Value: v.text(right)}}
		}
		return nil
	}
	return nil
}

// mergeOrConstraints folds `x === "a" || x === "b"` chains into one
// `in` constraint over the union of values. A disjunction that mixes
// subjects, operators, or negation has no single-constraint form and
// yields nothing.
func mergeOrConstraints(left, right []facts.ConstraintFact) []facts.ConstraintFact {
	all := append(append([]facts.ConstraintFact{}, left...), right...)
	if len(all) < 2 {
		return nil
	}
	subject := all[0].Subject
	var values []string
	for _, c := range all {
		if c.Subject != subject || c.Negated {
			return nil
		}
		switch c.Operator {
		case "===":
			values = append(values, c.Value)
		case "in":
			values = append(values, c.Values...)
		default:
			return nil
		}
	}
	return []facts.ConstraintFact{{Subject: subject, Operator: "in", Values: values}}
}

// negateConstraints applies De Morgan to an if-test's constraints for
// the else branch: each constraint flips to its complement and is
// marked Negated.
func negateConstraints(constraints []facts.ConstraintFact) []facts.ConstraintFact {
	out := make([]facts.ConstraintFact, 0, len(constraints))
	for _, c := range constraints {
		n := c
		n.Negated = !c.Negated
		switch c.Operator {
		case "===":
			n.Operator = "!=="
		case "!==":
			n.Operator = "==="
		case "typeof===":
			n.Operator = "typeof!=="
		case "typeof!==":
			n.Operator = "typeof==="
		case "in":
			n.Operator = "not_in"
			n.Excludes = true
		case "not_in":
			n.Operator = "in"
			n.Excludes = false
		case "truthy":
			n.Operator = "falsy"
		case "falsy":
			n.Operator = "truthy"
		}
		out = append(out, n)
	}
	return out
}

// microTraceToErrorClass walks a bounded chain of simple
// `const x = y` assignments recorded so far in the current module's
// variable-declaration facts to resolve the error class a `throw x`
// ultimately constructs, e.g. `const err = new TypeError(...)`.
func microTraceToErrorClass(target string, decls []facts.VarDecl, maxHops int) (string, []string) {
	trace := []string{target}
	cur := target
	for hop := 0; hop < maxHops; hop++ {
		found := false
		for i := len(decls) - 1; i >= 0; i-- {
			d := decls[i]
			if d.Name != cur {
				continue
			}
			if d.InitSubKind == facts.SubNew && len(d.InitShapeHints) > 1 {
				return d.InitShapeHints[1], trace
			}
			if d.InitExprKind == facts.ExprVariable && len(d.InitShapeHints) > 1 {
				cur = d.InitShapeHints[1]
				trace = append(trace, cur)
				found = true
				break
			}
			return "", trace
		}
		if !found {
			break
		}
	}
	return "", trace
}

const microTraceMaxHops = 6

// destructuringLeaves enumerates the leaf bindings of an ObjectPattern or
// ArrayPattern, returning one EXPRESSION-ready description per leaf: its
// full property path (or array index) from the pattern root, whether it is
// a `...rest` binding or carries a `= <default>`, and the classified
// init-expression the leaf ultimately derives from. Nested object/array
// patterns ({a: {b}}, [[a, b]]) recurse, accumulating the property path as
// they go.
func (v *visitor) destructuringLeaves(pattern, init *sitter.Node) []facts.ObjectProperty {
	var out []facts.ObjectProperty
	v.collectDestructureLeaves(pattern, init, nil, &out)
	return out
}

// collectDestructureLeaves does the recursive walk; path is the property
// path accumulated from the pattern root down to (but not including) the
// node currently being visited.
func (v *visitor) collectDestructureLeaves(pattern, init *sitter.Node, path []string, out *[]facts.ObjectProperty) {
	if pattern == nil {
		return
	}
	switch pattern.Type() {
	case "object_pattern":
		for i := 0; i < int(pattern.ChildCount()); i++ {
			c := pattern.Child(i)
			switch c.Type() {
			case "shorthand_property_identifier_pattern":
				v.emitDestructureLeaf(c, v.text(c), init, path, -1, false, nil, out)
			case "pair_pattern":
				key := c.ChildByFieldName("key")
				value := c.ChildByFieldName("value")
				v.destructureValue(value, v.text(key), init, path, -1, out)
			case "object_assignment_pattern":
				// `{x = 1}` shorthand-with-default: left is the bare binding,
				// right is the default-value expression.
				left := c.ChildByFieldName("left")
				right := c.ChildByFieldName("right")
				_, sub, hints := classifyExpr(right, v.text)
				v.emitDestructureLeaf(left, v.text(left), init, path, -1, true, append([]string{string(sub)}, hints...), out)
			case "rest_pattern":
				if id := c.Child(int(c.ChildCount()) - 1); id != nil {
					v.emitDestructureRest(id, init, path, -1, out)
				}
			}
		}
	case "array_pattern":
		idx := 0
		for i := 0; i < int(pattern.ChildCount()); i++ {
			c := pattern.Child(i)
			switch c.Type() {
			case ",", "[", "]":
				continue
			case "rest_pattern":
				if id := c.Child(int(c.ChildCount()) - 1); id != nil {
					v.emitDestructureRest(id, init, path, idx, out)
				}
				idx++
			default:
				v.destructureValue(c, "", init, path, idx, out)
				idx++
			}
		}
	}
}

// destructureValue handles one binding target (the value side of a
// pair_pattern, or one element of an array pattern): a bare identifier leaf,
// a nested object/array pattern, or an assignment_pattern wrapping either
// with a default value.
func (v *visitor) destructureValue(value *sitter.Node, key string, init *sitter.Node, path []string, index int, out *[]facts.ObjectProperty) {
	if value == nil {
		return
	}
	switch value.Type() {
	case "object_pattern", "array_pattern":
		nextPath := path
		if key != "" {
			nextPath = append(append([]string{}, path...), key)
		}
		v.collectDestructureLeaves(value, init, nextPath, out)
	case "assignment_pattern":
		left := value.ChildByFieldName("left")
		right := value.ChildByFieldName("right")
		if left != nil && (left.Type() == "object_pattern" || left.Type() == "array_pattern") {
			nextPath := path
			if key != "" {
				nextPath = append(append([]string{}, path...), key)
			}
			v.collectDestructureLeaves(left, init, nextPath, out)
			return
		}
		leafKey := key
		if leafKey == "" {
			leafKey = v.text(left)
		}
		_, sub, hints := classifyExpr(right, v.text)
		v.emitDestructureLeaf(left, leafKey, init, path, index, true, append([]string{string(sub)}, hints...), out)
	default:
		leafKey := key
		if leafKey == "" {
			leafKey = v.text(value)
		}
		v.emitDestructureLeaf(value, leafKey, init, path, index, false, nil, out)
	}
}

func (v *visitor) emitDestructureRest(id *sitter.Node, init *sitter.Node, path []string, index int, out *[]facts.ObjectProperty) {
	v.emitDestructureLeaf(id, v.text(id), init, path, index, false, nil, out)
	(*out)[len(*out)-1].IsRest = true
}

func (v *visitor) emitDestructureLeaf(bindingNode *sitter.Node, key string, init *sitter.Node, path []string, index int, hasDefault bool, defaultHints []string, out *[]facts.ObjectProperty) {
	kind, sub, hints := classifyExpr(init, v.text)
	fullPath := append(append([]string{}, path...), key)
	*out = append(*out, facts.ObjectProperty{
		Key:           key,
		PropPath:      fullPath,
		Index:         index,
		ValueExprKind: kind,
		ValueHints:    append([]string{string(sub)}, hints...),
		HasDefault:    hasDefault,
		DefaultHints:  defaultHints,
	})
}
