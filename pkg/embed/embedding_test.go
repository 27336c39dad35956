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

package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

// deterministicProvider generates a repeatable, non-semantic vector from a
// text hash, the same role MockEmbeddingProvider plays in the corpus: fast
// and reproducible tests without a real embedding server.
type deterministicProvider struct {
	dim   int
	failN int
	calls int
}

func (p *deterministicProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.calls++
	if p.calls <= p.failN {
		return nil, errors.New("transient provider error")
	}
	var hash uint64 = 5381
	for _, c := range text {
		hash = (hash<<5 + hash) + uint64(c)
	}
	vec := make([]float32, p.dim)
	for i := range vec {
		vec[i] = float32((hash+uint64(i)*7919)%1000) / 1000.0
	}
	return normalize(vec), nil
}

func TestGenerator_EmbedGraph_SkipsEmptyBodies(t *testing.T) {
	g := graph.NewMemoryGraph()
	defer g.Close()
	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{Name: "A", File: "a.go", Body: "func A() {}"}))
	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{Name: "B", File: "a.go", Start: 1}))

	gen := NewGenerator(&deterministicProvider{dim: 8}, 2, nil)
	result, err := gen.EmbedGraph(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Embedded)
	assert.Equal(t, 1, result.Skipped)

	node, ok := g.FindNodeByNameInFile(graph.Function, "A", "a.go")
	require.True(t, ok)
	assert.Len(t, node.Data.Embedding, 8)
}

func TestGenerator_EmbedWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	gen := NewGenerator(&deterministicProvider{dim: 4, failN: 2}, 1, nil)
	gen.SetRetryConfig(RetryConfig{MaxRetries: 3, InitialBackoff: 0, MaxBackoff: 0, Multiplier: 2})

	vec, err := gen.embedWithRetry(context.Background(), "some code")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestNormalize_ProducesUnitVector(t *testing.T) {
	vec := normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, float64(vec[0]*vec[0]+vec[1]*vec[1]), 1e-6)
}
