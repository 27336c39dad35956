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

// Package bootstrap builds the process-lifetime values every codegraph
// entry point needs before any worker starts: the structured logger and
// the graph backend chosen by project configuration.
//
// # Configuration
//
// ProjectConfig is loaded from a YAML project file (.codegraph/project.yaml)
// and overlaid with CLI flags and environment variables. It carries the
// repository coordinates from spec §6 (repo_url, repo_path, username, pat,
// current_hash, branch, use_lsp) plus the Neo4j connection fields that
// select the remote backend.
//
// # Graph backend selection
//
// OpenGraph returns a graph.OrderedGraph when no Neo4j URI is configured
// (the default for local builds and JSONL export), or a graph.Neo4jGraph,
// pinged with a 5 second timeout, when one is. Callers never need to know
// which: the builder pipeline consumes graph.Graph.
package bootstrap
