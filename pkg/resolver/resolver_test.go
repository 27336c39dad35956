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

package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNone_AllMethodsReturnNotAvailable(t *testing.T) {
	var r Resolver = None{}
	ctx := context.Background()

	_, err := r.GotoDefinition(ctx, Position{File: "a.go", Line: 1})
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = r.GotoImplementations(ctx, Position{File: "a.go", Line: 1})
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = r.Hover(ctx, Position{File: "a.go", Line: 1})
	assert.ErrorIs(t, err, ErrNotAvailable)

	require.NoError(t, r.Close())
}

func TestDecodeLocations_Single(t *testing.T) {
	locs, err := decodeLocations([]byte(`{"uri":"file:///a.go","range":{"start":{"line":3,"character":4}}}`))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "/a.go", locs[0].File)
	assert.Equal(t, 3, locs[0].Line)
	assert.Equal(t, 4, locs[0].Column)
}

func TestDecodeLocations_Array(t *testing.T) {
	locs, err := decodeLocations([]byte(`[{"uri":"file:///a.go","range":{"start":{"line":1,"character":0}}},{"uri":"file:///b.go","range":{"start":{"line":2,"character":0}}}]`))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "/b.go", locs[1].File)
}

func TestDecodeLocations_Null(t *testing.T) {
	locs, err := decodeLocations([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, locs)
}
