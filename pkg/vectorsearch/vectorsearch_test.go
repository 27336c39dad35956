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

package vectorsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

func TestSearch_RanksBySimilarity(t *testing.T) {
	g := graph.NewMemoryGraph()
	defer g.Close()

	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{
		Name: "Exact", File: "a.go", Embedding: []float32{1, 0, 0},
	}))
	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{
		Name: "Orthogonal", File: "a.go", Start: 1, Embedding: []float32{0, 1, 0},
	}))
	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{
		Name: "NoEmbedding", File: "a.go", Start: 2,
	}))

	matches := Search(g, graph.Function, []float32{1, 0, 0}, 5)
	require.Len(t, matches, 2)
	assert.Equal(t, "Exact", matches[0].Node.Data.Name)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-6)
	assert.Equal(t, "Orthogonal", matches[1].Node.Data.Name)
	assert.InDelta(t, 0.0, float64(matches[1].Score), 1e-6)
}

func TestSearch_TopKTruncates(t *testing.T) {
	g := graph.NewMemoryGraph()
	defer g.Close()
	for i := 0; i < 5; i++ {
		require.NoError(t, g.AddNode(graph.Function, graph.NodeData{
			Name: "F", File: "a.go", Start: i, Embedding: []float32{1, 0},
		}))
	}
	matches := Search(g, graph.Function, []float32{1, 0}, 2)
	assert.Len(t, matches, 2)
}
