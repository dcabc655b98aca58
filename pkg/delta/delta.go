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

// Package delta detects which files changed between a checkpointed
// commit and HEAD, so incremental reanalysis only deletes and
// re-indexes the modules that moved: `git diff --name-status -M`
// shelled out and parsed, with rename detection and glob-based
// filtering.
package delta

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// emptyTreeSHA is git's well-known SHA for the empty tree, used as the
// base when there is no prior checkpoint (everything is "added").
const emptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// ChangeType classifies how a path changed between base and head.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Renamed  ChangeType = "renamed"
)

// Delta is the set of file changes between two commits.
type Delta struct {
	BaseSHA string
	HeadSHA string

	Added    []string
	Modified []string
	Deleted  []string

	// Renamed maps old path -> new path.
	Renamed map[string]string

	// All is the sorted, deduplicated union of every changed path
	// (renames contribute both their old and new path).
	All []string
}

// ChangeType returns the classification of path within d, or "" if
// path is not part of the delta at all.
func (d *Delta) ChangeType(path string) ChangeType {
	for _, p := range d.Added {
		if p == path {
			return Added
		}
	}
	for _, p := range d.Modified {
		if p == path {
			return Modified
		}
	}
	for _, p := range d.Deleted {
		if p == path {
			return Deleted
		}
	}
	for oldPath, newPath := range d.Renamed {
		if newPath == path {
			return Renamed
		}
		if oldPath == path {
			return Deleted
		}
	}
	return ""
}

// HasChanges reports whether any file changed.
func (d *Delta) HasChanges() bool {
	return len(d.All) > 0
}

// Detector shells out to git to compute deltas for one repository.
type Detector struct {
	repoPath string
}

// NewDetector returns a Detector rooted at repoPath.
func NewDetector(repoPath string) *Detector {
	return &Detector{repoPath: repoPath}
}

// IsGitRepository reports whether repoPath is inside a git work tree.
func (d *Detector) IsGitRepository() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = d.repoPath
	return cmd.Run() == nil
}

// HeadSHA resolves the current HEAD to a commit SHA.
func (d *Detector) HeadSHA() (string, error) {
	return d.resolveRef("HEAD")
}

func (d *Detector) resolveRef(ref string) (string, error) {
	cmd := exec.Command("git", "rev-parse", ref)
	cmd.Dir = d.repoPath
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git rev-parse %s: %s", ref, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Detect computes the delta between baseSHA and headSHA. An empty
// baseSHA compares against the empty tree (first-ever analysis: every
// file is "added"). An empty headSHA defaults to HEAD.
func (d *Detector) Detect(baseSHA, headSHA string) (*Delta, error) {
	if headSHA == "" {
		headSHA = "HEAD"
	}
	resolvedHead, err := d.resolveRef(headSHA)
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	resolvedBase := emptyTreeSHA
	if baseSHA != "" {
		resolvedBase, err = d.resolveRef(baseSHA)
		if err != nil {
			return nil, fmt.Errorf("resolve base: %w", err)
		}
	}

	delta := &Delta{BaseSHA: resolvedBase, HeadSHA: resolvedHead, Renamed: make(map[string]string)}

	cmd := exec.Command("git", "diff", "--name-status", "-M", resolvedBase, resolvedHead)
	cmd.Dir = d.repoPath
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git diff: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("git diff: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		status, paths := parseDiffLine(line)
		if status == "" {
			continue
		}
		switch status[0] {
		case 'A':
			delta.Added = append(delta.Added, paths[0])
		case 'M':
			delta.Modified = append(delta.Modified, paths[0])
		case 'D':
			delta.Deleted = append(delta.Deleted, paths[0])
		case 'R':
			if len(paths) >= 2 {
				delta.Renamed[paths[0]] = paths[1]
			}
		case 'C':
			if len(paths) >= 2 {
				delta.Added = append(delta.Added, paths[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse git diff: %w", err)
	}

	sort.Strings(delta.Added)
	sort.Strings(delta.Modified)
	sort.Strings(delta.Deleted)
	delta.All = buildAll(delta.Added, delta.Modified, delta.Deleted, delta.Renamed)

	return delta, nil
}

func buildAll(added, modified, deleted []string, renamed map[string]string) []string {
	set := make(map[string]bool)
	for _, p := range added {
		set[p] = true
	}
	for _, p := range modified {
		set[p] = true
	}
	for _, p := range deleted {
		set[p] = true
	}
	for oldPath, newPath := range renamed {
		set[oldPath] = true
		set[newPath] = true
	}
	all := make([]string, 0, len(set))
	for p := range set {
		all = append(all, p)
	}
	sort.Strings(all)
	return all
}

func parseDiffLine(line string) (status string, paths []string) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// Filter narrows delta to paths that do not match any of excludeGlobs
// (matched against the slash-normalized path with filepath.Match
// semantics applied per path segment count, i.e. "**" style prefixes
// are treated as a plain prefix match).
func Filter(d *Delta, excludeGlobs []string) *Delta {
	filtered := &Delta{BaseSHA: d.BaseSHA, HeadSHA: d.HeadSHA, Renamed: make(map[string]string)}

	include := func(path string) bool {
		norm := filepath.ToSlash(path)
		for _, pattern := range excludeGlobs {
			if matchesGlob(norm, pattern) {
				return false
			}
		}
		return true
	}

	for _, p := range d.Added {
		if include(p) {
			filtered.Added = append(filtered.Added, p)
		}
	}
	for _, p := range d.Modified {
		if include(p) {
			filtered.Modified = append(filtered.Modified, p)
		}
	}
	for _, p := range d.Deleted {
		if include(p) {
			filtered.Deleted = append(filtered.Deleted, p)
		}
	}
	for oldPath, newPath := range d.Renamed {
		if include(newPath) {
			filtered.Renamed[oldPath] = newPath
			continue
		}
		if include(oldPath) {
			filtered.Deleted = append(filtered.Deleted, oldPath)
		}
	}

	sort.Strings(filtered.Added)
	sort.Strings(filtered.Modified)
	sort.Strings(filtered.Deleted)
	filtered.All = buildAll(filtered.Added, filtered.Modified, filtered.Deleted, filtered.Renamed)
	return filtered
}

// matchesGlob matches a slash-normalized path against a pattern that
// may contain a "**/" prefix (meaning "at any depth") in addition to
// filepath.Match's single-segment wildcards.
func matchesGlob(path, pattern string) bool {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		segments := strings.Split(path, "/")
		for i := range segments {
			if ok, _ := filepath.Match(suffix, strings.Join(segments[i:], "/")); ok {
				return true
			}
		}
		if ok, _ := filepath.Match(suffix, path); ok {
			return true
		}
		return false
	}
	ok, _ := filepath.Match(pattern, path)
	if ok {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(pattern, "/**"))
}
