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
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// NormalizePath applies a standard file-id normalization: forward
// slashes, no leading "./", no leading "/", so ids are stable across
// platforms and across absolute/relative invocations of the same tree.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	return path
}

// BuildBaseID constructs the undisambiguated semantic id:
//
//	{file}->{scope_segment_0}->...->{NodeKind}->{name}
func BuildBaseID(file string, scopePath []string, nodeKind, name string) string {
	var b strings.Builder
	b.WriteString(NormalizePath(file))
	for _, seg := range scopePath {
		b.WriteString("->")
		b.WriteString(seg)
	}
	b.WriteString("->")
	b.WriteString(nodeKind)
	b.WriteString("->")
	b.WriteString(name)
	return b.String()
}

// ContentHash hashes a node-kind-specific set of hints into the 8-hex-char
// disambiguator used when a base id collides with a sibling's. Hints must
// be ordered and stable under unrelated edits elsewhere in the file; each
// node kind's hints are chosen where pkg/builder stages the node.
func ContentHash(hints ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(hints, "\x1f")))
	return hex.EncodeToString(sum[:4])
}
