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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

func TestStreamingPipeline_Run_FlushesInBatchesAndCheckpoints(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/many\n\ngo 1.24\n"), 0o644))
	for i := 0; i < 5; i++ {
		content := fmt.Sprintf("package many\n\nfunc F%d() {}\n", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%d.go", i)), []byte(content), 0o644))
	}

	checkpointDir := t.TempDir()
	sp := NewStreaming(Config{
		RepositoryURL: "example.com/many",
		RepoPath:      dir,
		CommitHash:    "deadbeef",
	}, checkpointDir, 2)

	g := graph.NewMemoryGraph()
	defer g.Close()

	result, err := sp.Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 5, result.FilesProcessed)

	funcs := g.FindNodesByType(graph.Function)
	assert.Len(t, funcs, 5)

	cp, err := sp.checkpoint.Load("example.com/many")
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoint should be cleared after a successful run")
}
