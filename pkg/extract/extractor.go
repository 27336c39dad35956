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

// Package extract runs one language profile's queries over one parsed file
// and writes the resulting nodes and edges into a graph. Each Extractor is
// single-use: create one per (file, stack) pair, call Run once.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/resolver"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// Extractor holds the state needed across a single file's passes: the
// language profile supplying queries, the definition resolver (possibly
// resolver.None), and the repository-relative file path every emitted
// node is stamped with.
type Extractor struct {
	Stack    lang.Stack
	Resolver resolver.Resolver
	File     string
}

// New builds an Extractor. res may be resolver.None{} when no language
// server is configured.
func New(stack lang.Stack, res resolver.Resolver, file string) *Extractor {
	if res == nil {
		res = resolver.None{}
	}
	return &Extractor{Stack: stack, Resolver: res, File: file}
}

// Structure holds what Stage1 extracted for one file, kept alive until
// Stage2 runs call resolution against the fully-populated graph.
type Structure struct {
	tree  *syntax.Tree
	funcs []funcRecord
	tests []funcRecord
}

// Close releases the parse tree. Safe to call once Stage2 has run, or if
// Stage1 failed.
func (s *Structure) Close() {
	if s != nil && s.tree != nil {
		s.tree.Close()
	}
}

// Run parses source and executes extraction passes 2 through 13 against g
// (pass 1, libraries, runs in the builder through ExtractLibraries). It is
// Stage1 immediately followed by Stage2 against the same
// file's own graph, equivalent to the per-file ordering guarantee, but
// callers extracting a whole repository must instead run Stage1 for every
// file before Stage2 for any file — see pkg/builder's pipeline — so that
// pass 10's single-candidate call heuristic sees every file's functions.
func (e *Extractor) Run(ctx context.Context, g graph.Graph, source []byte) error {
	st, err := e.Stage1(ctx, g, source)
	if err != nil {
		return err
	}
	defer st.Close()
	return e.Stage2(g, st)
}

// Stage1 parses source and runs passes 2 through 9 (imports through
// function/test structure, including function post-processing). Passes
// that the language has no query for (an empty query string) are skipped;
// this is not an error. The returned Structure must be passed to Stage2.
func (e *Extractor) Stage1(ctx context.Context, g graph.Graph, source []byte) (*Structure, error) {
	tree, err := syntax.Parse(ctx, source, e.Stack.Language())
	if err != nil {
		return nil, fmt.Errorf("extract: %s: %w", e.File, err)
	}

	if err := g.AddNode(graph.File, graph.NodeData{Name: e.File, File: e.File}); err != nil {
		tree.Close()
		return nil, err
	}

	comments := e.runOptional(tree, e.Stack.CommentQuery())

	steps := []func(*syntax.Tree, graph.Graph) error{
		e.extractImports,
		e.extractVariables,
		e.extractClassesAndTraits,
		e.extractDataModels,
		e.extractInstances,
		e.extractPages,
	}
	for _, step := range steps {
		if err := step(tree, g); err != nil {
			tree.Close()
			return nil, err
		}
	}

	funcs, tests, err := e.extractFunctionsAndTests(tree, g, comments)
	if err != nil {
		tree.Close()
		return nil, err
	}
	if err := e.postProcessFunctions(tree, g, funcs); err != nil {
		tree.Close()
		return nil, err
	}

	return &Structure{tree: tree, funcs: funcs, tests: tests}, nil
}

// Stage2 runs passes 10 through 13 (calls, endpoints, integration/E2E
// tests, component templates) plus the language's final graph cleanup. It
// must run only after Stage1 has completed for every file in the
// repository, so call resolution's single-candidate heuristic sees the
// complete function set.
func (e *Extractor) Stage2(g graph.Graph, st *Structure) error {
	if err := e.extractCalls(st.tree, g, st.funcs); err != nil {
		return err
	}
	if err := e.extractEndpoints(st.tree, g); err != nil {
		return err
	}
	if err := e.extractIntegrationTests(st.tree, g, st.tests); err != nil {
		return err
	}
	if err := e.extractComponentTemplates(st.tree, g); err != nil {
		return err
	}
	e.Stack.CleanGraph(g)
	return nil
}

// runOptional runs query against tree and returns nil (not an error) when
// query is "": the language profile has no concept for this pass.
func (e *Extractor) runOptional(tree *syntax.Tree, query string) []syntax.Match {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	matches, err := syntax.RunQuery(tree, query)
	if err != nil {
		return nil
	}
	return matches
}

func textOf(m syntax.Match, capture string) (string, bool) {
	c, ok := m.Captures[capture]
	if !ok {
		return "", false
	}
	return c.Text, true
}

func spanOf(m syntax.Match, capture string) (start, end int, ok bool) {
	c, ok := m.Captures[capture]
	if !ok {
		return 0, 0, false
	}
	return int(c.StartPoint.Row), int(c.EndPoint.Row), true
}

// pointOf returns the row/column a capture starts at, for callers that need
// a precise source position (e.g. a goto_definition request) rather than
// just the line spanOf gives.
func pointOf(m syntax.Match, capture string) (line, column int, ok bool) {
	c, ok := m.Captures[capture]
	if !ok {
		return 0, 0, false
	}
	return int(c.StartPoint.Row), int(c.StartPoint.Column), true
}

// Pass 2: Imports. One Import node per contiguous block match; the
// language's query is expected to capture the whole block under "imports".
func (e *Extractor) extractImports(tree *syntax.Tree, g graph.Graph) error {
	matches := e.runOptional(tree, e.Stack.ImportsQuery())
	for _, m := range matches {
		name, ok := textOf(m, lang.CaptureImportsName)
		if !ok {
			name, _ = textOf(m, lang.CaptureImports)
		}
		start, end, _ := spanOf(m, lang.CaptureImports)
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name == "" {
			continue
		}
		if err := g.AddNode(graph.Import, graph.NodeData{
			Name: name, File: e.File, Start: start, End: end,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Pass 3: Variables (top-level consts/lets).
func (e *Extractor) extractVariables(tree *syntax.Tree, g graph.Graph) error {
	matches := e.runOptional(tree, e.Stack.VariablesQuery())
	for _, m := range matches {
		for name, c := range m.Captures {
			if name != "variable_declaration" {
				continue
			}
			if err := g.AddNode(graph.Variable, graph.NodeData{
				Name:  firstLine(c.Text),
				File:  e.File,
				Start: int(c.StartPoint.Row),
				End:   int(c.EndPoint.Row),
				Body:  c.Text,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

// Pass 4: Classes / Traits.
func (e *Extractor) extractClassesAndTraits(tree *syntax.Tree, g graph.Graph) error {
	for _, m := range e.runOptional(tree, e.Stack.ClassDefinitionQuery()) {
		name, ok := textOf(m, lang.CaptureClassName)
		if !ok {
			continue
		}
		start, end, _ := spanOf(m, lang.CaptureClassDefinition)
		if err := g.AddNode(graph.Class, graph.NodeData{
			Name: name, File: e.File, Start: start, End: end,
		}); err != nil {
			return err
		}
	}
	for _, m := range e.runOptional(tree, e.Stack.TraitsQuery()) {
		name, ok := textOf(m, lang.CaptureTraitName)
		if !ok {
			continue
		}
		start, end, _ := spanOf(m, lang.CaptureTrait)
		if err := g.AddNode(graph.Trait, graph.NodeData{
			Name: name, File: e.File, Start: start, End: end,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Pass 5: Instances — variables whose declared type names a known Class.
func (e *Extractor) extractInstances(tree *syntax.Tree, g graph.Graph) error {
	classes := map[string]bool{}
	for _, n := range g.FindNodesByType(graph.Class) {
		classes[n.Data.Name] = true
	}
	for _, m := range e.runOptional(tree, e.Stack.VariablesQuery()) {
		c, ok := m.Captures["variable_declaration"]
		if !ok {
			continue
		}
		for typeName := range classes {
			if strings.Contains(c.Text, typeName) {
				name := firstLine(c.Text)
				if err := g.AddNode(graph.Instance, graph.NodeData{
					Name:     name,
					File:     e.File,
					Start:    int(c.StartPoint.Row),
					End:      int(c.EndPoint.Row),
					DataType: typeName,
				}); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

// Pass 6: Data models — type declarations intended for serialization.
func (e *Extractor) extractDataModels(tree *syntax.Tree, g graph.Graph) error {
	for _, m := range e.runOptional(tree, e.Stack.DataModelQuery()) {
		name, ok := textOf(m, lang.CaptureStructName)
		if !ok {
			continue
		}
		start, end, _ := spanOf(m, lang.CaptureStruct)
		if err := g.AddNode(graph.DataModel, graph.NodeData{
			Name: name, File: e.File, Start: start, End: end,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Pass 7: Pages (frontend only) — one Page per route, with a Renders edge
// to it from the Class named as the component when that Class is declared
// in the same file. The definition resolver is not consulted.
func (e *Extractor) extractPages(tree *syntax.Tree, g graph.Graph) error {
	for _, m := range e.runOptional(tree, e.Stack.PageQuery()) {
		comp, ok := textOf(m, lang.CapturePageComponent)
		if !ok {
			continue
		}
		start, end, _ := spanOf(m, lang.CapturePage)
		route := comp
		if path, ok := textOf(m, lang.CapturePagePaths); ok {
			route = strings.Trim(path, `"'`)
		}
		if err := g.AddNode(graph.Page, graph.NodeData{
			Name: route, File: e.File, Start: start, End: end,
		}); err != nil {
			return err
		}
		if class, ok := g.FindNodeByNameInFile(graph.Class, comp, e.File); ok {
			_ = g.AddEdge(graph.Edge{
				Kind:   graph.Renders,
				Source: graph.Ref{Kind: graph.Class, Key: class.Key()},
				Target: graph.Ref{Kind: graph.Page, Key: graph.NodeKey{Name: route, File: e.File, Start: start}},
			})
		}
	}
	return nil
}
