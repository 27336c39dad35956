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

package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDiffLine(t *testing.T) {
	status, paths := parseDiffLine("M\tpkg/graph/memory.go")
	assert.Equal(t, "M", status)
	assert.Equal(t, []string{"pkg/graph/memory.go"}, paths)

	status, paths = parseDiffLine("R100\told.go\tnew.go")
	assert.Equal(t, "R100", status)
	assert.Equal(t, []string{"old.go", "new.go"}, paths)

	status, _ = parseDiffLine("")
	assert.Empty(t, status)
}

func TestDelta_ChangedOrAddedAndRemoved(t *testing.T) {
	d := &Delta{
		Added:    []string{"a.go"},
		Modified: []string{"b.go"},
		Deleted:  []string{"c.go"},
		Renamed:  map[string]string{"old.go": "new.go"},
	}
	assert.ElementsMatch(t, []string{"a.go", "b.go", "new.go"}, d.ChangedOrAdded())
	assert.ElementsMatch(t, []string{"c.go", "old.go"}, d.RemovedPaths())
}

func TestValidCommitHash(t *testing.T) {
	assert.True(t, ValidCommitHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904"))
	assert.True(t, ValidCommitHash("abc1234"))
	assert.False(t, ValidCommitHash("not-hex!"))
	assert.False(t, ValidCommitHash("abc"))
}
