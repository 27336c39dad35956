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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/resolver"
)

const goFixture = `package widget

type Counter struct {
	n int
}

// Increment bumps the counter by one.
func (c *Counter) Increment() {
	c.n++
}

func NewCounter() *Counter {
	return &Counter{}
}

func run() {
	c := NewCounter()
	c.Increment()
}

func TestRun(t *testing.T) {
	run()
}
`

func TestExtractor_Run_Go(t *testing.T) {
	g := graph.NewMemoryGraph()
	ex := New(lang.Go{}, resolver.None{}, "widget.go")

	err := ex.Run(context.Background(), g, []byte(goFixture))
	require.NoError(t, err)

	classes := g.FindNodesByType(graph.Class)
	require.Len(t, classes, 1)
	assert.Equal(t, "Counter", classes[0].Data.Name)

	funcs := g.FindNodesByType(graph.Function)
	names := map[string]bool{}
	for _, f := range funcs {
		names[f.Data.Name] = true
	}
	assert.True(t, names["NewCounter"])
	assert.True(t, names["run"])

	tests := g.FindNodesByType(graph.UnitTest)
	require.Len(t, tests, 1)
	assert.Equal(t, "TestRun", tests[0].Data.Name)
}

func TestExtractLibraries_GoMod(t *testing.T) {
	g := graph.NewMemoryGraph()
	content := []byte("module example.com/widget\n\ngo 1.24\n\nrequire (\n\tgithub.com/stretchr/testify v1.9.0\n)\n")

	require.NoError(t, ExtractLibraries(g, "go.mod", content))

	libs := g.FindNodesByType(graph.Library)
	require.Len(t, libs, 1)
	assert.Equal(t, "github.com/stretchr/testify", libs[0].Data.Name)
	assert.Equal(t, "v1.9.0", libs[0].Data.GetMeta(graph.MetaVersion))
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"https://api.example.com/users/":  "/users",
		"/users?page=2":                   "/users",
		"/":                               "/",
		"/users#frag":                     "/users",
		"/users/123/":                     "/users/123",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
