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

package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const goSource = `package main

func first() {}

func second() {
	first()
}
`

func TestParseAndRunQuery(t *testing.T) {
	tree, err := Parse(context.Background(), []byte(goSource), Go)
	require.NoError(t, err)
	defer tree.Close()

	matches, err := RunQuery(tree, `(function_declaration name: (identifier) @function_name) @function_definition`)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	require.Equal(t, "first", matches[0].Captures["function_name"].Text)
	require.Equal(t, "second", matches[1].Captures["function_name"].Text)
}

func TestRunQuery_SourceOrder(t *testing.T) {
	tree, err := Parse(context.Background(), []byte(goSource), Go)
	require.NoError(t, err)
	defer tree.Close()

	matches, err := RunQuery(tree, `(call_expression function: (identifier) @function_call)`)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "first", matches[0].Captures["function_call"].Text)
}

func TestCompileQuery_InvalidQueryPanics(t *testing.T) {
	tree, err := Parse(context.Background(), []byte(goSource), Go)
	require.NoError(t, err)
	defer tree.Close()

	require.Panics(t, func() {
		_, _ = RunQuery(tree, `(this is not a valid query`)
	})
}

func TestQueryCacheReusesCompiledQuery(t *testing.T) {
	tree, err := Parse(context.Background(), []byte(goSource), Go)
	require.NoError(t, err)
	defer tree.Close()

	q := `(function_declaration name: (identifier) @function_name) @function_definition`
	first := compileQuery(tree.lang, q)
	second := compileQuery(tree.lang, q)
	require.Same(t, first, second)
}
