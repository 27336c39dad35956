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

// Package vectorsearch ranks graph nodes by embedding similarity to a query
// vector. It has no backend of its own: the embedded backend (pkg/graph's
// memory/ordered graphs) scans AllNodes() directly, while a remote backend
// like Neo4j would push the same comparison into a native HNSW index — this
// package is the scan-based fallback every backend can fall back to.
package vectorsearch

import (
	"math"
	"sort"

	"github.com/kraklabs/codegraph/pkg/graph"
)

// Match is one ranked search result.
type Match struct {
	Node  graph.Node
	Score float32 // cosine similarity, [-1, 1]
}

// Search ranks every node of kind in g by cosine similarity to query,
// highest first, returning at most topK matches. Nodes with no embedding
// (zero-length or dimension mismatch) are skipped, not scored as zero.
func Search(g graph.Graph, kind graph.NodeKind, query []float32, topK int) []Match {
	if len(query) == 0 || topK <= 0 {
		return nil
	}
	var matches []Match
	for _, n := range g.FindNodesByType(kind) {
		if len(n.Data.Embedding) != len(query) {
			continue
		}
		score := cosineSimilarity(n.Data.Embedding, query)
		matches = append(matches, Match{Node: n, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// SearchAll behaves like Search but scans every node kind listed in kinds,
// used when the caller doesn't know in advance whether the best match is a
// Function, a DataModel, or an Endpoint.
func SearchAll(g graph.Graph, kinds []graph.NodeKind, query []float32, topK int) []Match {
	if len(query) == 0 || topK <= 0 {
		return nil
	}
	var all []Match
	for _, kind := range kinds {
		all = append(all, Search(g, kind, query, topK)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > topK {
		all = all[:topK]
	}
	return all
}

// cosineSimilarity assumes neither vector is the zero vector; pkg/embed
// always L2-normalizes before writing NodeData.Embedding, so a zero vector
// here would indicate an embedding that was never normalized.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
