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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph(t)
	require.NotNil(t, g)

	nodes, edges := g.GetGraphSize()
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
}

func TestAddFunction(t *testing.T) {
	g := NewGraph(t)
	key := AddFunction(t, g, "HandleAuth", "auth.go", 10, 25)

	fns := g.FindNodesByType(graph.Function)
	require.Len(t, fns, 1)
	assert.Equal(t, "HandleAuth", fns[0].Data.Name)
	assert.Equal(t, key, fns[0].Key())
}

func TestAddFile(t *testing.T) {
	g := NewGraph(t)
	AddFile(t, g, "auth.go")

	files := g.FindNodesByType(graph.File)
	require.Len(t, files, 1)
	assert.Equal(t, "auth.go", files[0].Data.Name)
}

func TestAddClass(t *testing.T) {
	g := NewGraph(t)
	AddClass(t, g, "UserService", "user.go", 10, 50)

	classes := g.FindNodesByType(graph.Class)
	require.Len(t, classes, 1)
	assert.Equal(t, "UserService", classes[0].Data.Name)
}

func TestAddCall(t *testing.T) {
	g := NewGraph(t)
	caller := AddFunction(t, g, "main", "main.go", 1, 10)
	callee := AddFunction(t, g, "helper", "main.go", 12, 15)

	AddCall(t, g, caller, callee, 3, 3)

	require.Equal(t, 1, g.CountEdgesOfType(graph.Calls))
}

func TestAddEndpoint(t *testing.T) {
	g := NewGraph(t)
	AddEndpoint(t, g, "/users", "routes.go", graph.VerbGet, 5)

	endpoints := g.FindNodesByType(graph.Endpoint)
	require.Len(t, endpoints, 1)
	assert.Equal(t, graph.VerbGet, endpoints[0].Data.GetMeta(graph.MetaVerb))
}

func TestGraphIsolation(t *testing.T) {
	g1 := NewGraph(t)
	AddFunction(t, g1, "Test1", "file1.go", 1, 10)

	g2 := NewGraph(t)
	nodes, _ := g2.GetGraphSize()
	assert.Zero(t, nodes, "second graph should be isolated from first")

	nodes1, _ := g1.GetGraphSize()
	assert.Equal(t, 1, nodes1)
}
