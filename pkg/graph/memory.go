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

import "sync"

// MemoryGraph is the array-backed Graph: nodes and edges live in plain
// slices, with secondary hash indexes for lookup. It favors write
// throughput over iteration order, which makes it a good per-file scratch
// graph during extraction and a fast fixture graph in tests.
type MemoryGraph struct {
	mu sync.RWMutex

	nodes     []Node
	nodeAt    map[NodeKey]int // NodeKey -> index into nodes
	byType    map[NodeKind][]int
	byName    map[NodeKind]map[string][]int
	byFile    map[NodeKind]map[string][]int

	edges    []Edge
	edgeAt   map[string]int // identity -> index into edges
	outgoing map[NodeKey][]int // source key -> edge indexes
	incoming map[NodeKey][]int // target key -> edge indexes

	repoHash map[string]string // repo_url -> commit_hash
}

// NewMemoryGraph returns an empty array-backed graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodeAt:   make(map[NodeKey]int),
		byType:   make(map[NodeKind][]int),
		byName:   make(map[NodeKind]map[string][]int),
		byFile:   make(map[NodeKind]map[string][]int),
		edgeAt:   make(map[string]int),
		outgoing: make(map[NodeKey][]int),
		incoming: make(map[NodeKey][]int),
		repoHash: make(map[string]string),
	}
}

var _ Graph = (*MemoryGraph)(nil)

func (g *MemoryGraph) AddNode(kind NodeKind, data NodeData) error {
	data = normalizeForStorage(kind, data)
	key := data.Key()

	g.mu.Lock()
	defer g.mu.Unlock()

	if idx, ok := g.nodeAt[key]; ok {
		g.nodes[idx] = Node{Kind: kind, Data: data}
		return nil
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, Node{Kind: kind, Data: data})
	g.nodeAt[key] = idx
	g.byType[kind] = append(g.byType[kind], idx)

	if g.byName[kind] == nil {
		g.byName[kind] = make(map[string][]int)
	}
	g.byName[kind][data.Name] = append(g.byName[kind][data.Name], idx)

	if g.byFile[kind] == nil {
		g.byFile[kind] = make(map[string][]int)
	}
	g.byFile[kind][data.File] = append(g.byFile[kind][data.File], idx)

	return nil
}

func (g *MemoryGraph) addNodeIfAbsent(n Node) {
	key := n.Key()
	g.mu.RLock()
	_, exists := g.nodeAt[key]
	g.mu.RUnlock()
	if exists {
		return
	}
	_ = g.AddNode(n.Kind, n.Data)
}

func (g *MemoryGraph) AddEdge(edge Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgeLocked(edge)
}

// addEdgeLocked requires g.mu to be held for writing. It drops the edge
// (returns nil, not an error) when an endpoint is missing, per the
// "NotFound is not an error" propagation policy.
func (g *MemoryGraph) addEdgeLocked(edge Edge) error {
	if _, ok := g.nodeAt[edge.Source.Key]; !ok {
		return nil
	}
	if _, ok := g.nodeAt[edge.Target.Key]; !ok {
		return nil
	}

	id := edge.identity()
	if idx, ok := g.edgeAt[id]; ok {
		// Idempotent: refresh call-site fields but don't duplicate.
		g.edges[idx] = edge
		return nil
	}

	idx := len(g.edges)
	g.edges = append(g.edges, edge)
	g.edgeAt[id] = idx
	g.outgoing[edge.Source.Key] = append(g.outgoing[edge.Source.Key], idx)
	g.incoming[edge.Target.Key] = append(g.incoming[edge.Target.Key], idx)
	return nil
}

func (g *MemoryGraph) FindNodesByType(kind NodeKind) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.byType[kind]))
	for _, idx := range g.byType[kind] {
		out = append(out, g.nodes[idx])
	}
	return out
}

func (g *MemoryGraph) FindNodesByName(kind NodeKind, name string) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idxs := g.byName[kind][name]
	out := make([]Node, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.nodes[idx])
	}
	return out
}

func (g *MemoryGraph) FindNodeByNameInFile(kind NodeKind, name, file string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, idx := range g.byName[kind][name] {
		if g.nodes[idx].Data.File == file {
			return g.nodes[idx], true
		}
	}
	return Node{}, false
}

func (g *MemoryGraph) FindNodesWithEdgeType(srcKind, tgtKind NodeKind, edgeKind EdgeKind) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[NodeKey]bool)
	var out []Node
	for _, idx := range g.byType[srcKind] {
		src := g.nodes[idx]
		for _, eidx := range g.outgoing[src.Key()] {
			e := g.edges[eidx]
			if e.Kind != edgeKind || e.Target.Kind != tgtKind {
				continue
			}
			if !seen[src.Key()] {
				seen[src.Key()] = true
				out = append(out, src)
			}
		}
	}
	return out
}

func (g *MemoryGraph) FindResourceNodes(kind NodeKind, verb, normalizedPath string) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Node
	for _, idx := range g.byType[kind] {
		n := g.nodes[idx]
		if n.Data.GetMeta(MetaVerb) == verb && n.Data.Name == normalizedPath {
			out = append(out, n)
		}
	}
	return out
}

func (g *MemoryGraph) FindHandlersForEndpoint(endpoint Node) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Node
	for _, eidx := range g.outgoing[endpoint.Key()] {
		e := g.edges[eidx]
		if e.Kind != Handler {
			continue
		}
		if idx, ok := g.nodeAt[e.Target.Key]; ok {
			out = append(out, g.nodes[idx])
		}
	}
	return out
}

func (g *MemoryGraph) FindTopLevelFunctions() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Node
	for _, idx := range g.byType[Function] {
		fn := g.nodes[idx]
		owned := false
		for _, eidx := range g.incoming[fn.Key()] {
			if g.edges[eidx].Kind == Operand {
				owned = true
				break
			}
		}
		if !owned {
			out = append(out, fn)
		}
	}
	return out
}

func (g *MemoryGraph) FindDataModelAt(file string, line int) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, idx := range g.byFile[DataModel][file] {
		n := g.nodes[idx]
		if line >= n.Data.Start && line <= n.Data.End {
			return n, true
		}
	}
	return Node{}, false
}

func (g *MemoryGraph) RemoveNodesByFile(file string) []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := make(map[NodeKey]bool)
	for _, n := range g.nodes {
		if n.Data.File == file {
			removed[n.Key()] = true
		}
	}
	if len(removed) == 0 {
		return nil
	}

	var incoming []Edge
	var keptEdges []Edge
	for _, e := range g.edges {
		srcRemoved := removed[e.Source.Key]
		tgtRemoved := removed[e.Target.Key]
		if tgtRemoved && !srcRemoved {
			incoming = append(incoming, e)
		}
		if !srcRemoved && !tgtRemoved {
			keptEdges = append(keptEdges, e)
		}
	}

	var keptNodes []Node
	for _, n := range g.nodes {
		if !removed[n.Key()] {
			keptNodes = append(keptNodes, n)
		}
	}

	g.rebuildLocked(keptNodes, keptEdges)
	return incoming
}

// rebuildLocked replaces the graph's contents and recomputes every index.
// Requires g.mu to be held for writing.
func (g *MemoryGraph) rebuildLocked(nodes []Node, edges []Edge) {
	g.nodes = nil
	g.nodeAt = make(map[NodeKey]int)
	g.byType = make(map[NodeKind][]int)
	g.byName = make(map[NodeKind]map[string][]int)
	g.byFile = make(map[NodeKind]map[string][]int)
	g.edges = nil
	g.edgeAt = make(map[string]int)
	g.outgoing = make(map[NodeKey][]int)
	g.incoming = make(map[NodeKey][]int)

	for _, n := range nodes {
		idx := len(g.nodes)
		g.nodes = append(g.nodes, n)
		g.nodeAt[n.Key()] = idx
		g.byType[n.Kind] = append(g.byType[n.Kind], idx)
		if g.byName[n.Kind] == nil {
			g.byName[n.Kind] = make(map[string][]int)
		}
		g.byName[n.Kind][n.Data.Name] = append(g.byName[n.Kind][n.Data.Name], idx)
		if g.byFile[n.Kind] == nil {
			g.byFile[n.Kind] = make(map[string][]int)
		}
		g.byFile[n.Kind][n.Data.File] = append(g.byFile[n.Kind][n.Data.File], idx)
	}
	for _, e := range edges {
		_ = g.addEdgeLocked(e)
	}
}

func (g *MemoryGraph) GetGraphSize() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes), len(g.edges)
}

func (g *MemoryGraph) CountEdgesOfType(kind EdgeKind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, e := range g.edges {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (g *MemoryGraph) UpdateRepositoryHash(repoURL, hash string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.repoHash[repoURL] = hash
	for i, n := range g.nodes {
		if n.Kind == Repository && n.Data.Name == repoURL {
			g.nodes[i].Data = n.Data.WithMeta("commit_hash", hash)
		}
	}
	return nil
}

func (g *MemoryGraph) Extend(other Graph) error {
	for _, n := range other.AllNodes() {
		g.addNodeIfAbsent(n)
	}
	for _, e := range other.AllEdges() {
		g.mu.Lock()
		if _, ok := g.edgeAt[e.identity()]; !ok {
			_ = g.addEdgeLocked(e)
		}
		g.mu.Unlock()
	}
	return nil
}

func (g *MemoryGraph) AllNodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *MemoryGraph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *MemoryGraph) Close() error { return nil }
