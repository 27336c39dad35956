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

package contract

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kraklabs/codegraph/pkg/graph"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit for a single batch
	// upload to a remote backend.
	DefaultSoftLimitBytes = 64 << 20 // 64 MiB

	// RequestIDMaxBytes is the maximum length for a batch request_id field.
	RequestIDMaxBytes = 128
)

// SoftLimitBytes returns the effective soft limit for a batch payload.
// Controlled via env CODEGRAPH_SOFT_LIMIT_BYTES; falls back to
// DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("CODEGRAPH_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult is the outcome of a single size check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateBatchSize checks a serialized batch payload against the soft
// limit before it is sent to a remote backend.
func ValidateBatchSize(payload []byte) *ValidationResult {
	if len(payload) > SoftLimitBytes() {
		return &ValidationResult{OK: false, Message: "batch payload exceeds soft limit"}
	}
	return &ValidationResult{OK: true}
}

// Violation describes one broken invariant found by ValidateGraph.
type Violation struct {
	Rule   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
}

// ValidateGraph checks the universal properties of spec.md §8 against a
// built graph: key uniqueness is structural (the Graph interface can't
// represent two nodes sharing a NodeKey), so this checks the remaining
// checkable invariants: edge well-formedness, verb defaulting, and
// Function/test-kind mutual exclusion.
func ValidateGraph(g graph.Graph) []Violation {
	var violations []Violation

	nodeExists := make(map[graph.NodeKey]bool)
	for _, n := range g.AllNodes() {
		nodeExists[n.Key()] = true
	}

	for _, e := range g.AllEdges() {
		if !nodeExists[e.Source.Key] {
			violations = append(violations, Violation{"edge-well-formedness", fmt.Sprintf("%s edge source %s not in graph", e.Kind, e.Source.Key)})
		}
		if !nodeExists[e.Target.Key] {
			violations = append(violations, Violation{"edge-well-formedness", fmt.Sprintf("%s edge target %s not in graph", e.Kind, e.Target.Key)})
		}
	}

	for _, n := range g.FindNodesByType(graph.Endpoint) {
		verb := n.Data.GetMeta(graph.MetaVerb)
		switch verb {
		case graph.VerbGet, graph.VerbPost, graph.VerbPut, graph.VerbDelete, graph.VerbPatch:
			// ok
		default:
			violations = append(violations, Violation{"verb-defaulting", fmt.Sprintf("endpoint %s has invalid verb %q", n.Key(), verb)})
		}
	}

	testKeys := make(map[graph.NodeKey]bool)
	for _, kind := range []graph.NodeKind{graph.UnitTest, graph.IntegrationTest, graph.E2eTest} {
		for _, n := range g.FindNodesByType(kind) {
			testKeys[n.Key()] = true
		}
	}
	for _, n := range g.FindNodesByType(graph.Function) {
		if testKeys[n.Key()] {
			violations = append(violations, Violation{"test-mutual-exclusion", fmt.Sprintf("%s is both Function and a test kind", n.Key())})
		}
	}

	return violations
}
