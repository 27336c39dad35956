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
	"unicode"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/resolver"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// funcRecord carries a function/test match's resolved fields across passes
// so call resolution and endpoint binding don't need to re-run queries.
type funcRecord struct {
	Name       string
	Start, End int
	Body       string
	ParentType string
	Match      syntax.Match
}

// Pass 8: Functions and tests. Every function_definition match yields a
// tentative Function; filter_tests partitions into functions vs test
// records, classify_test assigns the final kind. Trailing doc-comments
// within two blank lines of the function's start row are attached.
func (e *Extractor) extractFunctionsAndTests(tree *syntax.Tree, g graph.Graph, comments []syntax.Match) ([]funcRecord, []funcRecord, error) {
	matches, err := syntax.RunQuery(tree, e.Stack.FunctionDefinitionQuery())
	if err != nil {
		return nil, nil, nil
	}

	var funcs, tests []funcRecord
	for _, m := range matches {
		name, ok := textOf(m, lang.CaptureFunctionName)
		if !ok {
			continue
		}
		start, end, _ := spanOf(m, lang.CaptureFunctionDefinition)
		body, _ := textOf(m, lang.CaptureFunctionDefinition)
		parentType, _ := textOf(m, lang.CaptureParentType)

		rec := funcRecord{Name: name, Start: start, End: end, Body: body, ParentType: parentType, Match: m}
		docs := attachDocs(comments, start)

		if e.Stack.IsTest(name, e.File) {
			kind := e.Stack.ClassifyTest(name, e.File, body)
			if err := g.AddNode(nodeKindForTest(kind), graph.NodeData{
				Name: name, File: e.File, Start: start, End: end, Body: body, Docs: docs,
				Meta: map[string]string{graph.MetaTestKind: string(kind)},
			}); err != nil {
				return nil, nil, err
			}
			tests = append(tests, rec)
			continue
		}

		if err := g.AddNode(graph.Function, graph.NodeData{
			Name: name, File: e.File, Start: start, End: end, Body: body, Docs: docs,
		}); err != nil {
			return nil, nil, err
		}
		funcs = append(funcs, rec)
	}
	return funcs, tests, nil
}

func nodeKindForTest(kind lang.TestKind) graph.NodeKind {
	switch kind {
	case lang.TestIntegration:
		return graph.IntegrationTest
	case lang.TestE2e:
		return graph.E2eTest
	default:
		return graph.UnitTest
	}
}

// Pass 9: Function post-processing — parent resolution, requests-within,
// data-models-within, return-type linking.
func (e *Extractor) postProcessFunctions(tree *syntax.Tree, g graph.Graph, funcs []funcRecord) error {
	for _, fn := range funcs {
		if err := e.resolveParent(g, fn); err != nil {
			return err
		}
		if err := e.extractRequestsWithin(g, fn); err != nil {
			return err
		}
		if err := e.extractDataModelsWithin(g, fn); err != nil {
			return err
		}
		if err := e.extractReturnType(g, fn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) resolveParent(g graph.Graph, fn funcRecord) error {
	parentName, ok := e.Stack.FindFunctionParent(fn.Name, fn.ParentType)
	if !ok || parentName == "" {
		return nil
	}
	class, ok := g.FindNodeByNameInFile(graph.Class, parentName, e.File)
	if !ok {
		return nil
	}
	fnKey := graph.NodeKey{Name: fn.Name, File: e.File, Start: fn.Start}
	if err := g.AddNode(graph.Function, graph.NodeData{
		Name: fn.Name, File: e.File, Start: fn.Start, End: fn.End, Body: fn.Body,
		Meta: map[string]string{graph.MetaOperand: parentName},
	}); err != nil {
		return err
	}
	return g.AddEdge(graph.Edge{
		Kind:   graph.Operand,
		Source: graph.Ref{Kind: graph.Class, Key: class.Key()},
		Target: graph.Ref{Kind: graph.Function, Key: fnKey},
	})
}

// extractRequestsWithin runs request_finder_query within the function
// body's own parse, since tree-sitter queries match over an entire tree
// and the body text is re-parsed in isolation here for simplicity. The
// path is normalized per spec: strip scheme+authority, strip query and
// fragment, strip trailing slash unless the path is exactly "/".
func (e *Extractor) extractRequestsWithin(g graph.Graph, fn funcRecord) error {
	query := e.Stack.RequestFinderQuery()
	if strings.TrimSpace(query) == "" {
		return nil
	}
	bodyTree, err := parseBody(e, fn.Body)
	if err != nil || bodyTree == nil {
		return nil
	}
	defer bodyTree.Close()

	matches, err := syntax.RunQuery(bodyTree, query)
	if err != nil {
		return nil
	}
	for _, m := range matches {
		raw, ok := textOf(m, lang.CaptureRoute)
		if !ok {
			continue
		}
		path := normalizePath(strings.Trim(raw, `"'`))
		if path == "" {
			continue
		}
		start := fn.Start
		if c, ok := m.Captures[lang.CaptureRequestCall]; ok {
			start = fn.Start + int(c.StartPoint.Row)
		}
		if err := g.AddNode(graph.Request, graph.NodeData{
			Name: path, File: e.File, Start: start, End: start,
			Meta: map[string]string{graph.MetaVerb: graph.VerbGet},
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseBody(e *Extractor, body string) (*syntax.Tree, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	return syntax.Parse(context.Background(), []byte(body), e.Stack.Language())
}

// extractDataModelsWithin looks for type-identifier text in the function
// body matching a known DataModel name in the same file, deduplicated.
func (e *Extractor) extractDataModelsWithin(g graph.Graph, fn funcRecord) error {
	models := g.FindNodesByType(graph.DataModel)
	seen := map[string]bool{}
	for _, dm := range models {
		if dm.Data.File != e.File {
			continue
		}
		if !strings.Contains(fn.Body, dm.Data.Name) {
			continue
		}
		if seen[dm.Data.Name] {
			continue
		}
		seen[dm.Data.Name] = true
		if err := g.AddEdge(graph.Edge{
			Kind:   graph.Contains,
			Source: graph.Ref{Kind: graph.Function, Key: graph.NodeKey{Name: fn.Name, File: e.File, Start: fn.Start}},
			Target: graph.Ref{Kind: graph.DataModel, Key: dm.Key()},
		}); err != nil {
			return err
		}
	}
	return nil
}

// extractReturnType looks at the return_types capture for a capitalized
// type identifier; when a DataModel of that name exists (resolved via the
// definition resolver when available, falling back to same-file lookup and
// then to the first DataModel of that name in any file), records a
// Contains edge.
func (e *Extractor) extractReturnType(g graph.Graph, fn funcRecord) error {
	raw, ok := textOf(fn.Match, lang.CaptureReturnTypes)
	if !ok {
		return nil
	}
	typeName := strings.TrimSpace(strings.TrimPrefix(raw, "*"))
	typeName = strings.TrimPrefix(typeName, "[]")
	if typeName == "" || !unicode.IsUpper(rune(typeName[0])) {
		return nil
	}
	var dm graph.Node
	ok = false
	if line, col, hasPos := pointOf(fn.Match, lang.CaptureReturnTypes); hasPos {
		pos := resolver.Position{File: e.File, Line: line, Column: col}
		if loc, err := e.Resolver.GotoDefinition(context.Background(), pos); err == nil && loc != nil {
			dm, ok = g.FindNodeByNameInFile(graph.DataModel, typeName, loc.File)
		}
	}
	if !ok {
		dm, ok = g.FindNodeByNameInFile(graph.DataModel, typeName, e.File)
	}
	if !ok {
		candidates := g.FindNodesByName(graph.DataModel, typeName)
		if len(candidates) == 0 {
			return nil
		}
		dm = candidates[0]
	}
	return g.AddEdge(graph.Edge{
		Kind:   graph.Contains,
		Source: graph.Ref{Kind: graph.Function, Key: graph.NodeKey{Name: fn.Name, File: e.File, Start: fn.Start}},
		Target: graph.Ref{Kind: graph.DataModel, Key: dm.Key()},
	})
}
