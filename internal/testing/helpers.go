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

package testing

import (
	"testing"

	"github.com/kraklabs/codegraph/pkg/graph"
)

// NewGraph returns a fresh in-memory graph for a single test.
func NewGraph(t *testing.T) *graph.MemoryGraph {
	t.Helper()
	return graph.NewMemoryGraph()
}

// AddFunction seeds a Function node and returns its key.
func AddFunction(t *testing.T, g graph.Graph, name, file string, start, end int) graph.NodeKey {
	t.Helper()
	data := graph.NodeData{Name: name, File: file, Start: start, End: end}
	if err := g.AddNode(graph.Function, data); err != nil {
		t.Fatalf("add function %s: %v", name, err)
	}
	return data.Key()
}

// AddFile seeds a File node and returns its key.
func AddFile(t *testing.T, g graph.Graph, path string) graph.NodeKey {
	t.Helper()
	data := graph.NodeData{Name: path, File: path, Start: 0, End: 0}
	if err := g.AddNode(graph.File, data); err != nil {
		t.Fatalf("add file %s: %v", path, err)
	}
	return data.Key()
}

// AddClass seeds a Class node and returns its key.
func AddClass(t *testing.T, g graph.Graph, name, file string, start, end int) graph.NodeKey {
	t.Helper()
	data := graph.NodeData{Name: name, File: file, Start: start, End: end}
	if err := g.AddNode(graph.Class, data); err != nil {
		t.Fatalf("add class %s: %v", name, err)
	}
	return data.Key()
}

// AddEndpoint seeds an Endpoint node with the given verb and returns its key.
func AddEndpoint(t *testing.T, g graph.Graph, path, file, verb string, start int) graph.NodeKey {
	t.Helper()
	data := graph.NodeData{Name: path, File: file, Start: start, Meta: map[string]string{graph.MetaVerb: verb}}
	if err := g.AddNode(graph.Endpoint, data); err != nil {
		t.Fatalf("add endpoint %s: %v", path, err)
	}
	return data.Key()
}

// AddEdge seeds an edge between two already-added nodes.
func AddEdge(t *testing.T, g graph.Graph, kind graph.EdgeKind, srcKind graph.NodeKind, src graph.NodeKey, tgtKind graph.NodeKind, tgt graph.NodeKey) {
	t.Helper()
	edge := graph.Edge{Kind: kind, Source: graph.Ref{Kind: srcKind, Key: src}, Target: graph.Ref{Kind: tgtKind, Key: tgt}}
	if err := g.AddEdge(edge); err != nil {
		t.Fatalf("add edge %s: %v", kind, err)
	}
}

// AddCall seeds a Calls edge between two functions, with call-site range.
func AddCall(t *testing.T, g graph.Graph, caller, callee graph.NodeKey, callStart, callEnd int) {
	t.Helper()
	edge := graph.Edge{
		Kind:      graph.Calls,
		Source:    graph.Ref{Kind: graph.Function, Key: caller},
		Target:    graph.Ref{Kind: graph.Function, Key: callee},
		CallStart: callStart,
		CallEnd:   callEnd,
	}
	if err := g.AddEdge(edge); err != nil {
		t.Fatalf("add call %s->%s: %v", caller, callee, err)
	}
}
