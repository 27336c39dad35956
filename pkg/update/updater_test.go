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

package update

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/graph"
)

func initGitRepo(t *testing.T, dir string) {
	t.Helper()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
}

func commitAll(t *testing.T, dir, message string) string {
	t.Helper()
	add := exec.Command("git", "add", "-A")
	add.Dir = dir
	require.NoError(t, add.Run())
	commit := exec.Command("git", "commit", "-q", "-m", message)
	commit.Dir = dir
	require.NoError(t, commit.Run())
	rev := exec.Command("git", "rev-parse", "HEAD")
	rev.Dir = dir
	out, err := rev.Output()
	require.NoError(t, err)
	return string(out[:40])
}

func TestUpdater_EmptyStoredHash_PerformsFullBuild(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	initGitRepo(t, root)
	head := commitAll(t, root, "initial")

	g := graph.NewMemoryGraph()
	defer g.Close()

	u := New(Config{RepositoryURL: "example.com/a", RepoPath: root, CurrentHash: head})
	result, err := u.Run(context.Background(), g)
	require.NoError(t, err)
	assert.True(t, result.FullBuild)

	funcs := g.FindNodesByType(graph.Function)
	assert.NotEmpty(t, funcs)
}

func TestUpdater_Incremental_ReextractsOnlyChangedFile(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package a\n\nfunc B() {}\n"), 0o644))
	initGitRepo(t, root)
	base := commitAll(t, root, "initial")

	g := graph.NewMemoryGraph()
	defer g.Close()
	full := New(Config{RepositoryURL: "example.com/a", RepoPath: root, CurrentHash: base})
	_, err := full.Run(context.Background(), g)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc A() {}\n\nfunc C() {}\n"), 0o644))
	head := commitAll(t, root, "add C")

	u := New(Config{RepositoryURL: "example.com/a", RepoPath: root, CurrentHash: head, StoredHash: base})
	result, err := u.Run(context.Background(), g)
	require.NoError(t, err)
	assert.False(t, result.FullBuild)
	assert.Equal(t, 1, result.FilesChanged)

	funcs := g.FindNodesByType(graph.Function)
	names := map[string]bool{}
	for _, f := range funcs {
		names[f.Data.Name] = true
	}
	assert.True(t, names["A"])
	assert.True(t, names["B"])
	assert.True(t, names["C"])
}
