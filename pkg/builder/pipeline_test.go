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

package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

const widgetGo = `package widget

type Widget struct {
	Name string
}

func NewWidget() *Widget {
	return &Widget{}
}
`

const mainGo = `package widget

func main() {
	w := NewWidget()
	_ = w
}
`

func TestPipeline_Run_CrossFileCallResolution(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte(widgetGo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(mainGo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/widget\n\ngo 1.24\n"), 0o644))

	p := New(Config{
		RepositoryURL: "example.com/widget",
		RepoPath:      root,
		CommitHash:    "deadbeef",
	}, t.TempDir())

	target := graph.NewMemoryGraph()
	defer target.Close()

	result, err := p.Run(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesProcessed)
	assert.Zero(t, result.FilesFailed)

	classes := target.FindNodesByType(graph.Class)
	require.Len(t, classes, 1)
	assert.Equal(t, "Widget", classes[0].Data.Name)

	calls := target.FindNodesWithEdgeType(graph.Function, graph.Function, graph.Calls)
	found := false
	for _, n := range calls {
		if n.Data.Name == "main" {
			found = true
		}
	}
	assert.True(t, found, "expected main's Calls edge to NewWidget to be resolved across files")
}
