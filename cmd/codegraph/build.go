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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/builder"
	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/linker"
	"github.com/kraklabs/codegraph/pkg/vcs"
)

// runBuild executes 'codegraph build': a from-scratch run of the 16-step
// pipeline over a repository checkout.
func runBuild(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var r repoFlags
	bindRepoFlags(fs, &r)
	exclude := fs.StringArray("exclude", nil, "Glob pattern to exclude from the walk (repeatable)")
	maxFileBytes := fs.Int64("max-file-bytes", 2<<20, "Skip files larger than this many bytes")
	workers := fs.Int("workers", 0, "Parallel extraction workers (default: NumCPU, capped at 8)")
	jsonlOut := fs.String("jsonl-out", "", "Export the built graph as <prefix>-nodes.jsonl / <prefix>-edges.jsonl")
	withEmbeddings := fs.Bool("embed", false, "Generate embeddings for Function/Class/DataModel/Endpoint nodes after building")
	embedWorkers := fs.Int("embed-workers", 4, "Parallel embedding workers")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: codegraph build [options]

Builds the code knowledge graph for a repository from scratch.

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
		logger.Info("build.signal.cancel")
		cancel()
	}()

	g, err := bootstrap.OpenGraph(ctx, *cfg, logger)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = g.Close() }()

	res, closeResolver := openResolver(ctx, cfg.UseLSP, cfg.RepoPath, logger)
	defer closeResolver()

	pipeline := builder.New(builder.Config{
		RepositoryURL: cfg.RepoURL,
		RepoPath:      cfg.RepoPath,
		CommitHash:    cfg.CurrentHash,
		ExcludeGlobs:  *exclude,
		MaxFileBytes:  *maxFileBytes,
		Workers:       *workers,
		Resolver:      res,
		Logger:        logger,
	}, checkpointDir(cfg.RepoPath))

	if !globals.Quiet && !globals.JSON {
		ui.Header("codegraph build")
	}

	result, err := pipeline.Run(ctx, g)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewBackendError("build failed", err.Error(), "check the backend connection and retry", err), globals.JSON)
	}

	apiEdges, err := linker.LinkAPI(g)
	if err != nil {
		logger.Warn("build.link_api.error", "err", err)
	}
	e2eEdges, err := linker.LinkE2E(g)
	if err != nil {
		logger.Warn("build.link_e2e.error", "err", err)
	}

	if *withEmbeddings {
		runEmbeddings(ctx, g, logger, *embedWorkers)
	}

	if *jsonlOut != "" {
		if err := graph.ExportJSONL(g, *jsonlOut); err != nil {
			cgerrors.FatalError(cgerrors.NewBackendError("jsonl export failed", err.Error(), "check the output path is writable", err), globals.JSON)
		}
	}

	printBuildResult(globals, result, apiEdges, e2eEdges)
}

func runEmbeddings(ctx context.Context, g graph.Graph, logger *slog.Logger, workers int) {
	provider := embed.NewOllamaProvider(ollamaHost(), ollamaModel(), logger)
	gen := embed.NewGenerator(provider, workers, logger)
	res, err := gen.EmbedGraph(ctx, g)
	if err != nil {
		logger.Warn("build.embed.error", "err", err)
		return
	}
	logger.Info("build.embed.complete", "embedded", res.Embedded, "skipped", res.Skipped, "errors", res.Errors)
}

func printBuildResult(globals GlobalFlags, result *builder.Result, apiEdges, e2eEdges int) {
	if globals.JSON {
		_ = output.JSON(map[string]any{
			"files_processed": result.FilesProcessed,
			"files_failed":    result.FilesFailed,
			"nodes":           result.Nodes,
			"edges":           result.Edges,
			"api_edges":       apiEdges,
			"e2e_edges":       e2eEdges,
			"duration":        result.Duration.String(),
		})
		return
	}
	ui.Successf("built %d nodes / %d edges from %d files (%d failed) in %s",
		result.Nodes, result.Edges, result.FilesProcessed, result.FilesFailed, result.Duration)
	if apiEdges > 0 || e2eEdges > 0 {
		fmt.Printf("  linked %d API edges, %d E2E edges\n", apiEdges, e2eEdges)
	}
}
