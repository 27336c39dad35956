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

// Package syntax is the thin adapter over the tree-sitter parsing and
// query engine: parse(code, language) -> tree, run_query(tree, query) ->
// matches with named captures. It is the only package in the module that
// imports github.com/smacker/go-tree-sitter directly; pkg/lang profiles
// never touch *sitter.Node outside the Capture values this package hands
// back.
//
// One *sitter.Parser is allocated per Parse call and closed before
// returning, so callers can run Parse concurrently across worker
// goroutines without sharing parser state. Compiled queries are cached
// process-wide, keyed by (language, query text), since a language
// profile's query strings are reused across every file of that language
// in a build.
package syntax
