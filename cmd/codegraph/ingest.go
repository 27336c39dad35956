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
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/builder"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/update"
	"github.com/kraklabs/codegraph/pkg/vcs"
)

// runIngest executes 'codegraph ingest': a large-repo-friendly entry point
// that picks between StreamingPipeline (no stored commit hash yet, so
// nothing to diff against) and pkg/update's incremental path (a hash is
// already on the Repository node) without the caller needing to know which
// applies.
func runIngest(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var r repoFlags
	bindRepoFlags(fs, &r)
	exclude := fs.StringArray("exclude", nil, "Glob pattern to exclude from the walk (repeatable)")
	maxFileBytes := fs.Int64("max-file-bytes", 2<<20, "Skip files larger than this many bytes")
	batchSize := fs.Int("batch-size", 0, "Files per streaming batch on first ingest (default 200)")
	forceFull := fs.Bool("force-full", false, "Ignore any stored commit hash and reingest from scratch")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: codegraph ingest [options]

Ingests a repository: streams a first-time build in bounded batches, or
runs the incremental updater when a prior commit hash is already stored.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := loadProjectConfig(globals.Config, r)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	if err := ensureCheckout(cfg); err != nil {
		cgerrors.FatalError(cgerrors.NewVersionControlError("cannot prepare repository checkout", err.Error(), "check --repo-url/--repo-path and CODEGRAPH_PAT", err), globals.JSON)
	}
	if cfg.CurrentHash == "" {
		if sha, shaErr := vcs.NewDeltaDetector(cfg.RepoPath, nil).HeadSHA(); shaErr == nil {
			cfg.CurrentHash = sha
		}
	}
	if err := cfg.Validate(); err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}

	logger := bootstrap.NewLogger(globals.Verbose > 0, globals.JSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("ingest.signal.cancel")
		cancel()
	}()

	g, err := bootstrap.OpenGraph(ctx, *cfg, logger)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = g.Close() }()

	res, closeResolver := openResolver(ctx, cfg.UseLSP, cfg.RepoPath, logger)
	defer closeResolver()

	storedHash := ""
	if !*forceFull {
		storedHash = lookupStoredHash(g, cfg.RepoURL)
	}

	if !globals.Quiet && !globals.JSON {
		ui.Header("codegraph ingest")
	}

	if storedHash == "" {
		pipeline := builder.NewStreaming(builder.Config{
			RepositoryURL: cfg.RepoURL,
			RepoPath:      cfg.RepoPath,
			CommitHash:    cfg.CurrentHash,
			ExcludeGlobs:  *exclude,
			MaxFileBytes:  *maxFileBytes,
			Resolver:      res,
			Logger:        logger,
		}, checkpointDir(cfg.RepoPath), *batchSize)

		result, err := pipeline.Run(ctx, g)
		if err != nil {
			cgerrors.FatalError(cgerrors.NewBackendError("streaming ingest failed", err.Error(), "rerun to resume from the last checkpoint", err), globals.JSON)
		}
		printIngestResult(globals, &update.Result{FullBuild: true, FilesChanged: result.FilesProcessed}, result)
		return
	}

	updater := update.New(update.Config{
		RepositoryURL: cfg.RepoURL,
		RepoPath:      cfg.RepoPath,
		CurrentHash:   cfg.CurrentHash,
		StoredHash:    storedHash,
		ExcludeGlobs:  *exclude,
		MaxFileBytes:  *maxFileBytes,
		Resolver:      res,
		Logger:        logger,
	})
	result, err := updater.Run(ctx, g)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewBackendError("incremental update failed", err.Error(), "rerun with --force-full to reingest from scratch", err), globals.JSON)
	}
	printIngestResult(globals, result, nil)
}

// lookupStoredHash returns the commit_hash recorded on repoURL's Repository
// node, or "" if the repository has never been ingested.
func lookupStoredHash(g graph.Graph, repoURL string) string {
	nodes := g.FindNodesByName(graph.Repository, repoURL)
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0].Data.GetMeta("commit_hash")
}

func printIngestResult(globals GlobalFlags, result *update.Result, streamed *builder.Result) {
	if globals.JSON {
		payload := map[string]any{
			"full_build":       result.FullBuild,
			"files_changed":    result.FilesChanged,
			"files_removed":    result.FilesRemoved,
			"edges_restitched": result.EdgesRestitched,
			"api_edges":        result.APIEdgesLinked,
			"e2e_edges":        result.E2EEdgesLinked,
		}
		if streamed != nil {
			payload["nodes"] = streamed.Nodes
			payload["edges"] = streamed.Edges
			payload["files_failed"] = streamed.FilesFailed
			payload["duration"] = streamed.Duration.String()
		}
		_ = output.JSON(payload)
		return
	}
	if result.FullBuild {
		ui.Successf("ingested %d files from scratch", result.FilesChanged)
	} else {
		ui.Successf("updated %d changed files, removed %d, restitched %d edges",
			result.FilesChanged, result.FilesRemoved, result.EdgesRestitched)
	}
	if result.APIEdgesLinked > 0 || result.E2EEdgesLinked > 0 {
		fmt.Printf("  linked %d API edges, %d E2E edges\n", result.APIEdgesLinked, result.E2EEdgesLinked)
	}
}
