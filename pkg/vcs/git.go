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
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vcs detects which files changed between two git commits, the
// input the incremental updater (pkg/update) needs to know which files to
// re-extract and which to evict.
package vcs

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
)

// emptyTreeSHA is git's hash of the empty tree, used as the base when
// diffing against a repository's very first commit so every file reads
// as "added".
const emptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// DeltaDetector runs git diff against a repository checked out on disk.
type DeltaDetector struct {
	logger   *slog.Logger
	repoPath string
}

// NewDeltaDetector builds a detector rooted at repoPath.
func NewDeltaDetector(repoPath string, logger *slog.Logger) *DeltaDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeltaDetector{logger: logger, repoPath: repoPath}
}

// Delta is the set of files that changed between BaseSHA and HeadSHA.
type Delta struct {
	BaseSHA  string
	HeadSHA  string
	Added    []string
	Modified []string
	Deleted  []string
	Renamed  map[string]string // old path -> new path

	// All is the sorted, deduplicated union of every path touched,
	// including both sides of a rename.
	All []string
}

// HasChanges reports whether any file changed.
func (d *Delta) HasChanges() bool { return len(d.All) > 0 }

// ChangedOrAdded is every file the updater needs to re-extract: added,
// modified, and the new side of a rename.
func (d *Delta) ChangedOrAdded() []string {
	out := append([]string{}, d.Added...)
	out = append(out, d.Modified...)
	for _, newPath := range d.Renamed {
		out = append(out, newPath)
	}
	sort.Strings(out)
	return out
}

// RemovedPaths is every file the updater needs to evict: deleted, and the
// old side of a rename.
func (d *Delta) RemovedPaths() []string {
	out := append([]string{}, d.Deleted...)
	for oldPath := range d.Renamed {
		out = append(out, oldPath)
	}
	sort.Strings(out)
	return out
}

// DetectDelta runs git diff --name-status -M between baseSHA and headSHA.
// An empty baseSHA diffs against the empty tree, so an initial build sees
// every tracked file as added.
func (dd *DeltaDetector) DetectDelta(baseSHA, headSHA string) (*Delta, error) {
	if headSHA == "" {
		headSHA = "HEAD"
	}
	resolvedHead, err := dd.resolveRef(headSHA)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve head: %w", err)
	}

	resolvedBase := emptyTreeSHA
	if baseSHA != "" {
		resolvedBase, err = dd.resolveRef(baseSHA)
		if err != nil {
			return nil, fmt.Errorf("vcs: resolve base: %w", err)
		}
	}

	delta := &Delta{BaseSHA: resolvedBase, HeadSHA: resolvedHead, Renamed: map[string]string{}}

	cmd := exec.Command("git", "diff", "--name-status", "-M", resolvedBase, resolvedHead)
	cmd.Dir = dd.repoPath
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("vcs: git diff: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("vcs: git diff: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		status, paths := parseDiffLine(scanner.Text())
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
		return nil, fmt.Errorf("vcs: parse git diff: %w", err)
	}

	sort.Strings(delta.Added)
	sort.Strings(delta.Modified)
	sort.Strings(delta.Deleted)

	seen := map[string]bool{}
	for _, p := range delta.Added {
		seen[p] = true
	}
	for _, p := range delta.Modified {
		seen[p] = true
	}
	for _, p := range delta.Deleted {
		seen[p] = true
	}
	for oldPath, newPath := range delta.Renamed {
		seen[oldPath] = true
		seen[newPath] = true
	}
	for p := range seen {
		delta.All = append(delta.All, p)
	}
	sort.Strings(delta.All)

	dd.logger.Info("vcs.delta.detected",
		"base_sha", shortSHA(resolvedBase), "head_sha", shortSHA(resolvedHead),
		"added", len(delta.Added), "modified", len(delta.Modified),
		"deleted", len(delta.Deleted), "renamed", len(delta.Renamed))

	return delta, nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// parseDiffLine parses one tab-separated git diff --name-status line into
// a status token (A, M, D, Rnnn, Cnnn) and its associated paths.
func parseDiffLine(line string) (string, []string) {
	if line == "" {
		return "", nil
	}
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// ResolveRef resolves a ref (branch, tag, short SHA) to a full commit SHA.
func (dd *DeltaDetector) ResolveRef(ref string) (string, error) {
	return dd.resolveRef(ref)
}

func (dd *DeltaDetector) resolveRef(ref string) (string, error) {
	cmd := exec.Command("git", "rev-parse", ref)
	cmd.Dir = dd.repoPath
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HeadSHA returns the repository's current HEAD commit.
func (dd *DeltaDetector) HeadSHA() (string, error) {
	return dd.resolveRef("HEAD")
}

// IsGitRepository reports whether repoPath is inside a git working tree.
func (dd *DeltaDetector) IsGitRepository() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dd.repoPath
	return cmd.Run() == nil
}

// validCommitPattern matches a plausible full or abbreviated SHA, used by
// callers that accept a commit hash from untrusted config.
var validCommitPattern = func(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// ValidCommitHash is exported for callers validating a hash before
// shelling out to git with it.
func ValidCommitHash(s string) bool { return validCommitPattern(s) }
