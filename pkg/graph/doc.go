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

// Package graph defines the typed node/edge algebra that is the target of
// every extraction pass, plus the three interchangeable storage backends
// that implement it:
//
//   - MemoryGraph: slice-of-nodes with secondary indexes. Fastest writes,
//     used as per-file scratch space and in unit tests.
//   - OrderedGraph: a NodeKey-keyed map with an explicit insertion-order
//     slice. The canonical build target; deterministic iteration makes its
//     JSONL export reproducible across runs.
//   - Neo4jGraph: batches node/edge upserts to a Neo4j database over
//     Cypher UNWIND statements. The "remote graph store" backend.
//
// No node ever owns another node. Containment, calls, and every other
// relationship are edges over NodeKey values, so all three backends share
// one representation and the extractor never needs to know which backend
// is active.
package graph
