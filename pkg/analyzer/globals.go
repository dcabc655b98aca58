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

// DefaultKnownGlobals is the built-in ECMAScript + Node.js global binding
// set: identifiers a BrokenImportValidator-style consumer should treat as
// already bound rather than flagging as an unresolved read. A workspace's
// config.yaml `analysis.knownGlobals` list extends this set; it never
// replaces it (see the Analysis.KnownGlobals field of pkg/config.Config).
var DefaultKnownGlobals = buildDefaultKnownGlobals()

func buildDefaultKnownGlobals() map[string]bool {
	names := []string{
		// ECMAScript global object / values
		"globalThis", "undefined", "NaN", "Infinity",
		// ECMAScript built-in constructors and namespaces
		"Object", "Function", "Boolean", "Symbol", "Error", "TypeError",
		"RangeError", "SyntaxError", "ReferenceError", "EvalError", "URIError",
		"AggregateError", "Number", "BigInt", "Math", "Date", "String",
		"RegExp", "Array", "Int8Array", "Uint8Array", "Uint8ClampedArray",
		"Int16Array", "Uint16Array", "Int32Array", "Uint32Array",
		"Float32Array", "Float64Array", "BigInt64Array", "BigUint64Array",
		"ArrayBuffer", "SharedArrayBuffer", "DataView", "Atomics", "JSON",
		"Promise", "Reflect", "Proxy", "Map", "Set", "WeakMap", "WeakSet",
		"WeakRef", "FinalizationRegistry", "Iterator", "AsyncIterator",
		"GeneratorFunction", "AsyncGeneratorFunction", "AsyncFunction",
		// ECMAScript global functions
		"eval", "isFinite", "isNaN", "parseFloat", "parseInt",
		"decodeURI", "decodeURIComponent", "encodeURI", "encodeURIComponent",
		// Web/WHATWG globals Node.js also exposes
		"console", "setTimeout", "clearTimeout", "setInterval", "clearInterval",
		"setImmediate", "clearImmediate", "queueMicrotask", "structuredClone",
		"fetch", "Request", "Response", "Headers", "URL", "URLSearchParams",
		"TextEncoder", "TextDecoder", "AbortController", "AbortSignal",
		"Event", "EventTarget", "CustomEvent", "performance",
		// Node.js CommonJS module globals
		"require", "module", "exports", "__dirname", "__filename",
		"process", "Buffer", "global",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
