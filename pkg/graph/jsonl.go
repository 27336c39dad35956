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

package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// jsonNode and jsonEdge are the wire shapes for the JSONL export format
// described in the external interfaces section: one JSON object per line,
// either a node ({node_type, node_data}) or an edge
// ({edge, source: {...}, target: {...}}).
type jsonNode struct {
	NodeType string   `json:"node_type"`
	NodeData NodeData `json:"node_data"`
}

type jsonEdgeEndpoint struct {
	NodeType string   `json:"node_type"`
	NodeData NodeData `json:"node_data"`
}

type jsonEdge struct {
	Edge      string           `json:"edge"`
	Source    jsonEdgeEndpoint `json:"source"`
	Target    jsonEdgeEndpoint `json:"target"`
	CallStart int              `json:"call_start,omitempty"`
	CallEnd   int              `json:"call_end,omitempty"`
	Operand   string           `json:"operand,omitempty"`
}

// NodesFileName and EdgesFileName build the canonical <base>-nodes.jsonl /
// <base>-edges.jsonl file names.
func NodesFileName(base string) string { return base + "-nodes.jsonl" }
func EdgesFileName(base string) string { return base + "-edges.jsonl" }

// sortedNodes returns g's nodes in the canonical export order: by kind,
// then by NodeKey. This is what makes two from-scratch builds of the same
// repository produce byte-identical JSONL (testable property 3).
func sortedNodes(g Graph) []Node {
	nodes := g.AllNodes()
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind < nodes[j].Kind
		}
		return nodes[i].Key().String() < nodes[j].Key().String()
	})
	return nodes
}

func sortedEdges(g Graph) []Edge {
	edges := g.AllEdges()
	sort.Slice(edges, func(i, j int) bool {
		return edgeSortKey(edges[i]) < edgeSortKey(edges[j])
	})
	return edges
}

func edgeSortKey(e Edge) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", e.Kind, e.Source.Kind, e.Source.Key.String(), e.Target.Kind, e.Target.Key.String())
}

// ExportJSONL writes g to <base>-nodes.jsonl and <base>-edges.jsonl in
// canonical sorted order.
func ExportJSONL(g Graph, base string) error {
	if err := exportNodes(g, NodesFileName(base)); err != nil {
		return err
	}
	return exportEdges(g, EdgesFileName(base))
}

func exportNodes(g Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, n := range sortedNodes(g) {
		if err := enc.Encode(jsonNode{NodeType: string(n.Kind), NodeData: n.Data}); err != nil {
			return err
		}
	}
	return w.Flush()
}

func exportEdges(g Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range sortedEdges(g) {
		je := jsonEdge{
			Edge:      string(e.Kind),
			Source:    jsonEdgeEndpoint{NodeType: string(e.Source.Kind), NodeData: NodeData{Name: e.Source.Key.Name, File: e.Source.Key.File, Start: e.Source.Key.Start}},
			Target:    jsonEdgeEndpoint{NodeType: string(e.Target.Kind), NodeData: NodeData{Name: e.Target.Key.Name, File: e.Target.Key.File, Start: e.Target.Key.Start}},
			CallStart: e.CallStart,
			CallEnd:   e.CallEnd,
			Operand:   e.CallOperand,
		}
		if err := enc.Encode(je); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ImportJSONL reads both <base>-nodes.jsonl and <base>-edges.jsonl into g.
// Each line is tried as a node first, then as an edge; blank lines are
// silently skipped, matching the external interface contract.
func ImportJSONL(g Graph, base string) error {
	nf, err := os.Open(NodesFileName(base))
	if err == nil {
		defer nf.Close()
		if err := importLines(g, nf); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	ef, err := os.Open(EdgesFileName(base))
	if err == nil {
		defer ef.Close()
		return importLines(g, ef)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

func importLines(g Graph, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		trimmed := trimSpaceBytes(line)
		if len(trimmed) == 0 {
			continue
		}

		var jn jsonNode
		if err := json.Unmarshal(trimmed, &jn); err == nil && jn.NodeType != "" {
			if err := g.AddNode(NodeKind(jn.NodeType), jn.NodeData); err != nil {
				return err
			}
			continue
		}

		var je jsonEdge
		if err := json.Unmarshal(trimmed, &je); err == nil && je.Edge != "" {
			edge := Edge{
				Kind: EdgeKind(je.Edge),
				Source: Ref{
					Kind: NodeKind(je.Source.NodeType),
					Key:  NodeKey{Name: je.Source.NodeData.Name, File: je.Source.NodeData.File, Start: je.Source.NodeData.Start},
				},
				Target: Ref{
					Kind: NodeKind(je.Target.NodeType),
					Key:  NodeKey{Name: je.Target.NodeData.Name, File: je.Target.NodeData.File, Start: je.Target.NodeData.Start},
				},
				CallStart:   je.CallStart,
				CallEnd:     je.CallEnd,
				CallOperand: je.Operand,
			}
			if err := g.AddEdge(edge); err != nil {
				return err
			}
			continue
		}
		// Neither shape matched: skip rather than fail the whole import.
	}
	return scanner.Err()
}

func trimSpaceBytes(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r' || b[start] == '\n') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r' || b[end-1] == '\n') {
		end--
	}
	return b[start:end]
}
