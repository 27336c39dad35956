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

package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

func TestNormalizePath_CollapsesParams(t *testing.T) {
	assert.Equal(t, "/users/{param}", normalizeBackendPath("/users/:id"))
	assert.Equal(t, "/users/{param}", normalizeFrontendPath("/users/123"))
	assert.Equal(t, "/users/{param}", normalizeBackendPath("/users/{userId}"))
	assert.True(t, pathsMatch(normalizeFrontendPath("/users/123"), normalizeBackendPath("/users/:id")))
	assert.False(t, pathsMatch("/users/{param}", "/users/{param}/posts"))
}

func TestLinkAPI_MatchesPathAndVerb(t *testing.T) {
	g := graph.NewMemoryGraph()
	defer g.Close()

	require.NoError(t, g.AddNode(graph.Request, graph.NodeData{
		Name: "/users/123", File: "frontend/api.ts", Start: 1,
		Meta: map[string]string{graph.MetaVerb: graph.VerbGet},
	}))
	require.NoError(t, g.AddNode(graph.Endpoint, graph.NodeData{
		Name: "/users/:id", File: "backend/routes.go", Start: 5,
		Meta: map[string]string{graph.MetaVerb: graph.VerbGet},
	}))
	require.NoError(t, g.AddNode(graph.Endpoint, graph.NodeData{
		Name: "/posts/:id", File: "backend/routes.go", Start: 9,
		Meta: map[string]string{graph.MetaVerb: graph.VerbGet},
	}))

	added, err := LinkAPI(g)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	matched := g.FindNodesWithEdgeType(graph.Request, graph.Endpoint, graph.Calls)
	require.Len(t, matched, 1)
	assert.Equal(t, "/users/123", matched[0].Data.Name)

	// Idempotent: running again adds no new edges.
	added, err = LinkAPI(g)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestLinkE2E_SharedTestID(t *testing.T) {
	g := graph.NewMemoryGraph()
	defer g.Close()

	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{
		Name: "SubmitButton", File: "frontend/button.tsx", Start: 1,
		Body: `<button data-testid="submit-btn">Go</button>`,
	}))
	require.NoError(t, g.AddNode(graph.E2eTest, graph.NodeData{
		Name: "submits form", File: "e2e/test_form.py", Start: 1,
		Body: `page.get_by_test_id('submit-btn').click()`,
	}))

	added, err := LinkE2E(g)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	linked := g.FindNodesWithEdgeType(graph.E2eTest, graph.Function, graph.LinkedE2eTest)
	require.Len(t, linked, 1)
}

func TestLinkE2E_MatchesCypressAndPlaywrightTSForms(t *testing.T) {
	g := graph.NewMemoryGraph()
	defer g.Close()

	require.NoError(t, g.AddNode(graph.Function, graph.NodeData{
		Name: "SubmitButton", File: "frontend/button.tsx", Start: 1,
		Body: `<button data-testid="submit-btn">Go</button>`,
	}))
	require.NoError(t, g.AddNode(graph.E2eTest, graph.NodeData{
		Name: "cypress form test", File: "e2e/form.cy.ts", Start: 1,
		Body: `cy.get('[data-testid="submit-btn"]').click()`,
	}))
	require.NoError(t, g.AddNode(graph.E2eTest, graph.NodeData{
		Name: "playwright ts form test", File: "e2e/form.spec.ts", Start: 1,
		Body: `await page.getByTestId('submit-btn').click()`,
	}))

	added, err := LinkE2E(g)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}
