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

// Package scope maintains the stack of lexical scope frames a single-file
// traversal pushes and pops, and turns position-based facts into the
// deterministic "semantic id" format the rest of the engine keys on:
//
//	{file}->{scope_segment_0}->...->{NodeKind}->{name}[disambiguator]
//
// Frame kinds and counters generalize a flat, hashed file/func id
// scheme to an arbitrary-depth scope path instead of a two-level
// file+function one.
package scope

import "fmt"

// Kind identifies what introduced a scope frame.
type Kind string

const (
	KindModule   Kind = "module"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
	KindTry      Kind = "try"
	KindCatch    Kind = "catch"
	KindFinally  Kind = "finally"
	KindIf       Kind = "if_statement"
	KindElse     Kind = "else_statement"
	KindSwitch   Kind = "switch"
	KindFor      Kind = "for"
	KindWhile    Kind = "while"
	KindDoWhile  Kind = "do_while"
	KindClosure  Kind = "closure"
	KindWith     Kind = "with"
)

// Frame is one entry in the scope stack.
type Frame struct {
	Kind     Kind
	Name     string
	counters map[Kind]uint32
}

// Tracker is a per-file stack of scope frames, built and torn down as a
// single AST traversal visits and leaves lexical constructs. It is not
// safe for concurrent use; each worker owns exactly one Tracker for the
// file it is parsing (see pkg/workerpool).
type Tracker struct {
	file    string
	frames  []*Frame
	itemCtr map[string]uint32 // key: file + scope path + item key
}

// New creates a Tracker for the named file, with the module frame already
// pushed (every scope path is rooted at the module).
func New(file string) *Tracker {
	t := &Tracker{
		file:    file,
		itemCtr: make(map[string]uint32),
	}
	t.EnterScope("module", KindModule)
	return t
}

// EnterScope pushes a new frame with an explicit name.
func (t *Tracker) EnterScope(name string, kind Kind) {
	t.frames = append(t.frames, &Frame{Kind: kind, Name: name, counters: make(map[Kind]uint32)})
}

// EnterCountedScope pushes a frame whose name is derived from a per-parent
// counter for this kind, e.g. the third if-statement in a function becomes
// "if_statement[2]". Used for constructs with no natural name: branches,
// loops, try/catch/finally, switch cases.
func (t *Tracker) EnterCountedScope(kind Kind) *Frame {
	var parent *Frame
	if n := len(t.frames); n > 0 {
		parent = t.frames[n-1]
	}
	var idx uint32
	if parent != nil {
		idx = parent.counters[kind]
		parent.counters[kind]++
	}
	name := fmt.Sprintf("%s[%d]", kind, idx)
	t.EnterScope(name, kind)
	return t.frames[len(t.frames)-1]
}

// ExitScope pops the innermost frame. Calling ExitScope with an empty
// stack (beyond the root module frame) is a caller bug; it panics so
// scope-stack-balance defects surface immediately in tests rather than
// producing silently wrong ids.
func (t *Tracker) ExitScope() {
	if len(t.frames) <= 1 {
		panic("scope: ExitScope called with only the module frame remaining")
	}
	t.frames = t.frames[:len(t.frames)-1]
}

// Depth reports how many frames remain on the stack, including the module
// root. Used by tests asserting "scope balance" (depth is 1 once a module
// traversal completes).
func (t *Tracker) Depth() int { return len(t.frames) }

// Context is a snapshot of the current traversal position.
type Context struct {
	File      string
	ScopePath []Frame
}

// GetContext snapshots the current scope path.
func (t *Tracker) GetContext() Context {
	path := make([]Frame, len(t.frames))
	for i, f := range t.frames {
		path[i] = *f
	}
	return Context{File: t.file, ScopePath: path}
}

// GetItemCounter returns the next 0-based ordinal for key within the
// current (file, scope path, key) tuple, and advances it. Used for
// disambiguating otherwise-identical sibling constructs (e.g. the Nth
// call expression in a given scope) before content-hash disambiguation
// is even considered.
func (t *Tracker) GetItemCounter(key string) uint32 {
	full := t.file + "|" + t.scopePathString() + "|" + key
	v := t.itemCtr[full]
	t.itemCtr[full] = v + 1
	return v
}

// FullPath returns the same frame-kind+name string GetItemCounter keys on,
// exposed for callers that need an ancestor-prefix test over the live
// scope stack (e.g. shadowing detection) rather than a per-key counter.
func (t *Tracker) FullPath() string {
	return t.scopePathString()
}

func (t *Tracker) scopePathString() string {
	s := ""
	for _, f := range t.frames {
		s += string(f.Kind) + ":" + f.Name + "/"
	}
	return s
}

// CurrentScopeID returns the semantic id of the innermost scope frame,
// i.e. the id that would be assigned to a SCOPE node representing it.
func (t *Tracker) CurrentScopeID() string {
	segs := t.ScopePathSegments()
	return BuildBaseID(t.file, segs[:len(segs)-1], "SCOPE", t.frames[len(t.frames)-1].Name)
}

// ScopePathSegments returns the scope segment strings that make up the
// spine of a semantic id, from the module root to the current frame
// inclusive. Each segment is the frame's name: a natural name for
// named frames ("module", the function or class name) and the derived
// kind+ordinal for counted frames ("if_statement[0]", "try[1]"), so a
// fact's scope path extended by a function's own name is exactly the
// path facts inside that function record — the prefix-match convention
// the graph builder and control-flow attribution both key on.
func (t *Tracker) ScopePathSegments() []string {
	segs := make([]string, 0, len(t.frames))
	for _, f := range t.frames {
		segs = append(segs, f.Name)
	}
	return segs
}
