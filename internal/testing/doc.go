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

// Package testing provides fixture builders shared by the extractor,
// builder, linker, and updater test suites: a fresh graph.MemoryGraph per
// test plus convenience constructors for the node/edge shapes those tests
// seed most often (functions, files, classes, calls, endpoints).
//
// # Quick start
//
//	func TestMyFeature(t *testing.T) {
//	    g := testing.NewGraph(t)
//	    testing.AddFunction(t, g, "HandleAuth", "auth.go", 10, 25)
//	    // ... exercise the thing under test against g
//	}
package testing
