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

// Pass 10: Function calls. Each call site is resolved through the
// five-step cascade in resolveCall and recorded as a Calls or Uses edge
// from the enclosing function.
func (e *Extractor) extractCalls(tree *syntax.Tree, g graph.Graph, funcs []funcRecord) error {
	queries := []string{e.Stack.FunctionCallQuery()}
	queries = append(queries, e.Stack.ExtraCallsQueries()...)

	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		matches, err := syntax.RunQuery(tree, query)
		if err != nil {
			continue
		}
		for _, m := range matches {
			calledName, ok := textOf(m, lang.CaptureFunctionCall)
			if !ok {
				continue
			}
			operand, _ := textOf(m, lang.CaptureOperand)
			callRow := 0
			if c, ok := m.Captures[lang.CaptureFunctionCall]; ok {
				callRow = int(c.StartPoint.Row)
			}

			caller := enclosingFunction(funcs, callRow)
			if caller == nil {
				continue
			}

			target, edgeKind, ok := e.resolveCall(g, calledName, operand)
			if !ok {
				continue
			}

			if err := g.AddEdge(graph.Edge{
				Kind:      edgeKind,
				Source:    graph.Ref{Kind: graph.Function, Key: graph.NodeKey{Name: caller.Name, File: e.File, Start: caller.Start}},
				Target:    graph.Ref{Kind: target.Kind, Key: target.Key()},
				CallStart: callRow,
				CallEnd:   callRow,
				CallOperand: operand,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func enclosingFunction(funcs []funcRecord, row int) *funcRecord {
	var best *funcRecord
	for i := range funcs {
		f := &funcs[i]
		if row >= f.Start && row <= f.End {
			if best == nil || (f.End-f.Start) < (best.End-best.Start) {
				best = f
			}
		}
	}
	return best
}

// resolveCall implements the spec's five-step call resolution order.
func (e *Extractor) resolveCall(g graph.Graph, calledName, operand string) (graph.Node, graph.EdgeKind, bool) {
	// (a) exact match by (called_name, resolved_file) via goto_definition.
	if loc, err := e.Resolver.GotoDefinition(context.Background(), resolver.Position{File: e.File}); err == nil && loc != nil {
		if n, ok := g.FindNodeByNameInFile(graph.Function, calledName, loc.File); ok {
			return n, callEdgeKind(n), true
		}
	}

	// (b) the single function with that name in the graph, preferring a
	// non-mock file when exactly two candidates remain.
	candidates := g.FindNodesByName(graph.Function, calledName)
	if len(candidates) == 1 {
		return candidates[0], callEdgeKind(candidates[0]), true
	}
	if len(candidates) == 2 {
		nonMock := filterNonMock(candidates)
		if len(nonMock) == 1 {
			return nonMock[0], callEdgeKind(nonMock[0]), true
		}
	}

	// (c) operand -> Instance.data_type -> function whose meta.operand ==
	// data_type.
	if operand != "" {
		for _, inst := range g.FindNodesByName(graph.Instance, operand) {
			for _, fn := range g.FindNodesByName(graph.Function, calledName) {
				if fn.Data.GetMeta(graph.MetaOperand) == inst.Data.DataType {
					return fn, callEdgeKind(fn), true
				}
			}
		}
	}

	// (d) trait dispatch via goto_implementations.
	if impls, err := e.Resolver.GotoImplementations(context.Background(), resolver.Position{File: e.File}); err == nil {
		for _, loc := range impls {
			if n, ok := g.FindNodeByNameInFile(graph.Function, calledName, loc.File); ok {
				return n, callEdgeKind(n), true
			}
		}
	}

	// (e) library file stub: synthesize an external Function whose docs
	// carry hover text, when the resolver can say anything about it at all.
	if hover, err := e.Resolver.Hover(context.Background(), resolver.Position{File: e.File}); err == nil && hover != "" {
		stub := graph.NodeData{Name: calledName, File: libFilePath(calledName), Docs: hover}
		_ = g.AddNode(graph.Function, stub)
		return graph.Node{Kind: graph.Function, Data: stub}, graph.Uses, true
	}

	return graph.Node{}, "", false
}

func callEdgeKind(n graph.Node) graph.EdgeKind {
	if n.Data.Body == "" && n.Data.Docs != "" {
		return graph.Uses
	}
	return graph.Calls
}

func filterNonMock(nodes []graph.Node) []graph.Node {
	var out []graph.Node
	for _, n := range nodes {
		if !strings.Contains(strings.ToLower(n.Data.File), "mock") {
			out = append(out, n)
		}
	}
	return out
}

// libFilePath synthesizes a stub's file path under the library-file
// convention every Stack.IsLibFile implementation recognizes by default:
// an absolute path.
func libFilePath(name string) string {
	return "/external/" + name
}
