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

package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFile_ResolvesByExtension(t *testing.T) {
	cases := map[string]string{
		"main.go":        "go",
		"app.py":         "python",
		"index.ts":       "typescript",
		"widget.tsx":     "typescript",
		"hero.component.ts": "angular",
	}
	for path, want := range cases {
		s, ok := ForFile(path, nil)
		require.True(t, ok, path)
		assert.Equal(t, want, s.Name(), path)
	}
}

func TestForFile_AngularByDecorator(t *testing.T) {
	src := []byte("@Component({selector: 'app-root'})\nexport class AppComponent {}\n")
	s, ok := ForFile("app.ts", src)
	require.True(t, ok)
	assert.Equal(t, "angular", s.Name())
}

func TestForFile_UnknownExtension(t *testing.T) {
	_, ok := ForFile("README.md", nil)
	assert.False(t, ok)
}

// Every required query method must return a non-empty template, since the
// extractor treats "" as "this language has nothing here" only for
// optional queries.
func TestRegistry_RequiredQueriesNonEmpty(t *testing.T) {
	for _, s := range All() {
		assert.NotEmpty(t, s.ClassDefinitionQuery(), s.Name())
		assert.NotEmpty(t, s.FunctionDefinitionQuery(), s.Name())
		assert.NotEmpty(t, s.FunctionCallQuery(), s.Name())
		assert.NotEmpty(t, s.Extensions(), s.Name())
	}
}
