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

// Package contract validates that a built graph upholds the data model's
// invariants (key uniqueness, edge well-formedness, verb defaulting, test
// mutual exclusion, …), and carries the batch-size limits shared by the
// builder pipeline's remote upload steps.
//
// ValidateGraph is meant to run in tests and behind `codegraph status
// --verify`, not on every build: the backends already enforce most of
// these invariants structurally (AddEdge silently drops dangling
// references, AddNode defaults a missing verb to GET), so a clean build
// should always validate. A violation usually means a backend bug, not a
// bad repository.
package contract
