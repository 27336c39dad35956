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

package linker

import (
	"fmt"
	"regexp"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
)

// LinkAPI implements §4.5's API linking pass: for every Request/Endpoint
// pair whose normalized paths and verbs both match, emit a Calls edge from
// the Request to the Endpoint. The pass is set-valued and idempotent —
// AddEdge already dedups by (kind, source, target), so re-running produces
// no new edges.
func LinkAPI(g graph.Graph) (edgesAdded int, err error) {
	requests := g.FindNodesByType(graph.Request)
	endpoints := g.FindNodesByType(graph.Endpoint)
	callsBefore := g.CountEdgesOfType(graph.Calls)

	type normalizedEndpoint struct {
		node graph.Node
		path string
		verb string
	}
	normEndpoints := make([]normalizedEndpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		normEndpoints = append(normEndpoints, normalizedEndpoint{
			node: ep,
			path: normalizeBackendPath(ep.Data.Name),
			verb: ep.Data.GetMeta(graph.MetaVerb),
		})
	}

	for _, req := range requests {
		reqPath := normalizeFrontendPath(req.Data.Name)
		reqVerb := req.Data.GetMeta(graph.MetaVerb)
		for _, ep := range normEndpoints {
			if !pathsMatch(reqPath, ep.path) || !verbsMatch(reqVerb, ep.verb) {
				continue
			}
			if addErr := g.AddEdge(graph.Edge{
				Kind:   graph.Calls,
				Source: graph.Ref{Kind: graph.Request, Key: req.Key()},
				Target: graph.Ref{Kind: graph.Endpoint, Key: ep.node.Key()},
			}); addErr != nil {
				return g.CountEdgesOfType(graph.Calls) - callsBefore, fmt.Errorf("linker: link api: %w", addErr)
			}
		}
	}
	return g.CountEdgesOfType(graph.Calls) - callsBefore, nil
}

// LinkE2E implements §4.5's E2E linking pass: every frontend Function's
// body is scanned for test identifiers (e.g. data-testid="...") via the
// owning language's TestIdentifierRegexp, and every E2eTest's body is
// scanned the same way; a shared identifier emits a LinkedE2eTest edge.
func LinkE2E(g graph.Graph) (edgesAdded int, err error) {
	functions := g.FindNodesByType(graph.Function)
	tests := g.FindNodesByType(graph.E2eTest)
	if len(functions) == 0 || len(tests) == 0 {
		return 0, nil
	}

	regexCache := map[string]*regexp.Regexp{}
	compile := func(pattern string) *regexp.Regexp {
		if pattern == "" {
			return nil
		}
		if re, ok := regexCache[pattern]; ok {
			return re
		}
		re, compileErr := regexp.Compile(pattern)
		if compileErr != nil {
			regexCache[pattern] = nil
			return nil
		}
		regexCache[pattern] = re
		return re
	}

	funcIDs := make([]struct {
		node graph.Node
		ids  map[string]bool
	}, 0, len(functions))
	for _, fn := range functions {
		stack, ok := lang.ForFile(fn.Data.File, nil)
		if !ok {
			continue
		}
		re := compile(stack.TestIdentifierRegexp())
		if re == nil {
			continue
		}
		ids := extractIdentifiers(re, fn.Data.Body)
		if len(ids) == 0 {
			continue
		}
		funcIDs = append(funcIDs, struct {
			node graph.Node
			ids  map[string]bool
		}{fn, ids})
	}

	for _, test := range tests {
		stack, ok := lang.ForFile(test.Data.File, nil)
		if !ok {
			continue
		}
		re := compile(stack.TestIdentifierRegexp())
		if re == nil {
			continue
		}
		testIDs := extractIdentifiers(re, test.Data.Body)
		if len(testIDs) == 0 {
			continue
		}
		for _, fn := range funcIDs {
			if !shareAny(testIDs, fn.ids) {
				continue
			}
			if addErr := g.AddEdge(graph.Edge{
				Kind:   graph.LinkedE2eTest,
				Source: graph.Ref{Kind: graph.E2eTest, Key: test.Key()},
				Target: graph.Ref{Kind: graph.Function, Key: fn.node.Key()},
			}); addErr != nil {
				return edgesAdded, fmt.Errorf("linker: link e2e: %w", addErr)
			}
			edgesAdded++
		}
	}
	return edgesAdded, nil
}

func extractIdentifiers(re *regexp.Regexp, body string) map[string]bool {
	out := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		// An alternation regex only fills the group for the branch that
		// matched; every other capture group in m is "". Take the first
		// non-empty one instead of assuming group 1 always matched.
		for _, group := range m[1:] {
			if group != "" {
				out[group] = true
				break
			}
		}
	}
	return out
}

func shareAny(a, b map[string]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}
