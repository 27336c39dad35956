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

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/graph"
)

func runClear(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	var r repoFlags
	bindRepoFlags(fs, &r)
	confirm := fs.Bool("yes", false, "Confirm the clear (required)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: codegraph clear [options]

Removes every node and edge belonging to a repository from the graph
backend, and clears its checkpoint state. Useful before a full re-ingest.

WARNING: this operation is destructive and cannot be undone.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	if !*confirm {
		fmt.Fprintln(os.Stderr, "Error: you must pass --yes to confirm the clear")
		fmt.Fprintln(os.Stderr, "This will delete all graph data for the repository.")
		os.Exit(1)
	}

	cfg, err := loadProjectConfig(globals.Config, r)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	if err := cfg.Validate(); err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}

	logger := bootstrap.NewLogger(globals.Verbose > 0, globals.JSON)
	ctx := context.Background()

	g, err := bootstrap.OpenGraph(ctx, *cfg, logger)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = g.Close() }()

	filesRemoved, edgesDropped := clearRepository(g)

	if err := os.RemoveAll(checkpointDir(cfg.RepoPath)); err != nil && !os.IsNotExist(err) {
		logger.Warn("clear.checkpoint.remove_failed", "err", err)
	}

	if globals.JSON {
		_ = output.JSON(map[string]any{
			"files_removed": filesRemoved,
			"edges_dropped": edgesDropped,
		})
		return
	}
	ui.Successf("cleared %d files and %d dangling edges", filesRemoved, edgesDropped)
}

// clearRepository deletes every node (and every edge incident to one) one
// file value at a time, since Graph exposes deletion at file granularity
// rather than a single wipe-everything call. Nodes with no file, such as
// Repository and Language, share the empty file value and go together.
// filesRemoved counts the File nodes that were present.
func clearRepository(g graph.Graph) (filesRemoved, edgesDropped int) {
	filesRemoved = len(g.FindNodesByType(graph.File))
	seen := make(map[string]bool)
	for _, n := range g.AllNodes() {
		if seen[n.Data.File] {
			continue
		}
		seen[n.Data.File] = true
		edgesDropped += len(g.RemoveNodesByFile(n.Data.File))
	}
	return filesRemoved, edgesDropped
}
