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

import "context"

// Graph is the operation contract shared by every storage backend. The
// extractor and builder pipeline depend only on this interface; they never
// know whether they're writing to memory, an ordered map, or Neo4j.
type Graph interface {
	// AddNode is idempotent by NodeKey: re-inserting the same key updates
	// the node's payload in place.
	AddNode(kind NodeKind, data NodeData) error

	// AddEdge is idempotent by (kind, source_ref, target_ref). If either
	// endpoint does not exist in the graph, the edge is silently dropped
	// (policy: drop, not error — NotFound is never surfaced as an error).
	AddEdge(edge Edge) error

	FindNodesByType(kind NodeKind) []Node
	FindNodesByName(kind NodeKind, name string) []Node
	FindNodeByNameInFile(kind NodeKind, name, file string) (Node, bool)
	FindNodesWithEdgeType(srcKind, tgtKind NodeKind, edgeKind EdgeKind) []Node

	// FindResourceNodes finds Endpoint/Request nodes of the given kind whose
	// meta.verb matches verb and whose name, once normalized, equals
	// normalizedPath. Used by the cross-repo linker and coverage reporting.
	FindResourceNodes(kind NodeKind, verb, normalizedPath string) []Node

	FindHandlersForEndpoint(endpoint Node) []Node
	FindTopLevelFunctions() []Node
	FindDataModelAt(file string, line int) (Node, bool)

	// RemoveNodesByFile deletes every node whose File equals file, and every
	// edge incident to a removed node. It returns the edges that pointed
	// INTO a removed node (their Target lay in file) so the incremental
	// updater can restitch them once file is re-extracted.
	RemoveNodesByFile(file string) (incoming []Edge)

	GetGraphSize() (nodes, edges int)
	CountEdgesOfType(kind EdgeKind) int

	UpdateRepositoryHash(repoURL, hash string) error

	// Extend merges other into this graph by set-union: nodes/edges already
	// present (by key/identity) are left as first inserted.
	Extend(other Graph) error

	// AllNodes and AllEdges provide full, backend-defined-order iteration,
	// used by JSONL export and by Extend.
	AllNodes() []Node
	AllEdges() []Edge

	Close() error
}

// RemoteGraph is implemented by backends that talk to an external store and
// therefore need a liveness check with its own timeout (§5: 5 seconds).
type RemoteGraph interface {
	Graph
	Ping(ctx context.Context) error
}
