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
	"context"
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/resolver"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// Pass 11: Endpoints. Each endpoint_finders match yields one Endpoint,
// verb inferred through the fallback chain, handler bound via the
// language's handler_finder hook or goto_definition on the handler token.
func (e *Extractor) extractEndpoints(tree *syntax.Tree, g graph.Graph) error {
	for _, query := range e.Stack.EndpointFinders() {
		matches, err := syntax.RunQuery(tree, query)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := e.addEndpoint(g, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Extractor) addEndpoint(g graph.Graph, m syntax.Match) error {
	rawRoute, ok := textOf(m, lang.CaptureRoute)
	if !ok {
		return nil
	}
	path := normalizePath(strings.Trim(rawRoute, `"'`))
	if path == "" {
		return nil
	}
	start, end, _ := spanOf(m, lang.CaptureEndpoint)

	handlerToken, _ := textOf(m, lang.CaptureHandler)
	verbCapture, _ := textOf(m, lang.CaptureEndpointVerb)
	verb := e.inferVerb(m, verbCapture, handlerToken)

	if err := g.AddNode(graph.Endpoint, graph.NodeData{
		Name: path, File: e.File, Start: start, End: end,
		Meta: map[string]string{graph.MetaVerb: verb, graph.MetaHandler: handlerToken},
	}); err != nil {
		return err
	}

	for _, parent := range e.Stack.FindEndpointParents(g, graph.Node{Kind: graph.Endpoint, Data: graph.NodeData{Name: path, File: e.File, Start: start}}) {
		_ = g.AddEdge(graph.Edge{
			Kind:   graph.ParentOf,
			Source: graph.Ref{Kind: parent.Kind, Key: parent.Key()},
			Target: graph.Ref{Kind: graph.Endpoint, Key: graph.NodeKey{Name: path, File: e.File, Start: start}},
		})
	}

	handlerLine, handlerCol, _ := pointOf(m, lang.CaptureHandler)
	return e.bindHandler(g, path, start, handlerToken, handlerLine, handlerCol)
}

// inferVerb runs the fallback chain: explicit endpoint_verb capture ->
// method-call name already folded into that same capture by the query ->
// attribute-macro verb (same capture, different syntax shape) -> the
// language's handler-name-prefix/attribute parsing in AddEndpointVerb ->
// GET.
func (e *Extractor) inferVerb(m syntax.Match, verbCapture, handlerToken string) string {
	if verbCapture != "" {
		return e.Stack.AddEndpointVerb(verbCapture, handlerToken)
	}
	return e.Stack.AddEndpointVerb("", handlerToken)
}

func (e *Extractor) bindHandler(g graph.Graph, endpointPath string, start int, handlerToken string, handlerLine, handlerCol int) error {
	if handlerToken == "" {
		return nil
	}

	handlerName, ok := e.Stack.HandlerFinder(handlerToken)
	if !ok {
		pos := resolver.Position{File: e.File, Line: handlerLine, Column: handlerCol}
		if loc, err := e.Resolver.GotoDefinition(context.Background(), pos); err == nil && loc != nil {
			if fn, ok := g.FindNodeByNameInFile(graph.Function, handlerToken, loc.File); ok {
				return addHandlerEdge(g, endpointPath, e.File, start, fn)
			}
		}
		return nil
	}

	if fn, ok := g.FindNodeByNameInFile(graph.Function, handlerName, e.File); ok {
		return addHandlerEdge(g, endpointPath, e.File, start, fn)
	}
	candidates := g.FindNodesByName(graph.Function, handlerName)
	if len(candidates) > 0 {
		return addHandlerEdge(g, endpointPath, e.File, start, candidates[0])
	}
	return nil
}

func addHandlerEdge(g graph.Graph, path, file string, start int, fn graph.Node) error {
	return g.AddEdge(graph.Edge{
		Kind:   graph.Handler,
		Source: graph.Ref{Kind: graph.Endpoint, Key: graph.NodeKey{Name: path, File: file, Start: start}},
		Target: graph.Ref{Kind: graph.Function, Key: fn.Key()},
	})
}
