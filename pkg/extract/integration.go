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

package extract

import (
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// Pass 12: Integration tests. integration_test query (an HTTP request
// inside a test body) produces an IntegrationTest or, when an
// e2e_test_name capture is present, an E2eTest, plus a Calls edge to each
// GET Endpoint whose path matches the request's normalized path. The
// request's own HTTP method is not read, so endpoints of other verbs are
// not linked.
func (e *Extractor) extractIntegrationTests(tree *syntax.Tree, g graph.Graph, tests []funcRecord) error {
	query := e.Stack.IntegrationTestQuery()
	if strings.TrimSpace(query) == "" {
		return nil
	}
	matches, err := syntax.RunQuery(tree, query)
	if err != nil {
		return nil
	}

	requestQuery := e.Stack.RequestFinderQuery()

	for _, m := range matches {
		name, ok := textOf(m, lang.CaptureFunctionName)
		if !ok {
			continue
		}
		start, end, _ := spanOf(m, lang.CaptureIntegrationTest)
		kind := graph.IntegrationTest
		if e2eName, ok := textOf(m, lang.CaptureE2eTestName); ok && e2eName != "" {
			kind = graph.E2eTest
		}

		if err := g.AddNode(kind, graph.NodeData{Name: name, File: e.File, Start: start, End: end}); err != nil {
			return err
		}

		if strings.TrimSpace(requestQuery) == "" {
			continue
		}
		body, _ := textOf(m, lang.CaptureIntegrationTest)
		bodyTree, err := parseBody(e, body)
		if err != nil || bodyTree == nil {
			continue
		}
		reqMatches, err := syntax.RunQuery(bodyTree, requestQuery)
		bodyTree.Close()
		if err != nil {
			continue
		}
		for _, rm := range reqMatches {
			raw, ok := textOf(rm, lang.CaptureRoute)
			if !ok {
				continue
			}
			path := normalizePath(strings.Trim(raw, `"'`))
			for _, ep := range g.FindResourceNodes(graph.Endpoint, graph.VerbGet, path) {
				if err := g.AddEdge(graph.Edge{
					Kind:   graph.Calls,
					Source: graph.Ref{Kind: kind, Key: graph.NodeKey{Name: name, File: e.File, Start: start}},
					Target: graph.Ref{Kind: graph.Endpoint, Key: ep.Key()},
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
