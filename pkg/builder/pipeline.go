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

// Package builder runs the fixed 16-step extraction pipeline over a
// repository checkout: it walks the tree, extracts every file through its
// language profile, and merges the per-file subgraphs into one graph,
// optionally flushing to a remote backend in bulk at the end.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/codegraph/pkg/extract"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/resolver"
)

// Config controls one pipeline run.
type Config struct {
	RepositoryURL string
	RepoPath      string
	CommitHash    string
	ExcludeGlobs  []string
	MaxFileBytes  int64
	Workers       int
	Resolver      resolver.Resolver
	Logger        *slog.Logger
}

// Result summarizes one completed build.
type Result struct {
	FilesProcessed int
	FilesFailed    int
	Nodes          int
	Edges          int
	Duration       time.Duration
}

// Pipeline runs the 16-step build over one repository checkout.
type Pipeline struct {
	cfg        Config
	logger     *slog.Logger
	loader     *RepoLoader
	checkpoint *CheckpointStore
}

// New builds a Pipeline. cfg.Resolver defaults to resolver.None{}.
func New(cfg Config, checkpointDir string) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolver.None{}
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		loader:     NewRepoLoader(logger),
		checkpoint: NewCheckpointStore(checkpointDir),
	}
}

type fileWork struct {
	file      SourceFile
	extractor *extract.Extractor
	structure *extract.Structure
	source    []byte
}

// Run executes steps 1 through 16 and returns the populated target graph's
// summary. Steps 1-14 write every node and edge into a local scratch
// MemoryGraph; steps 15-16 then flush that scratch graph into target,
// through its bulk upsert interface when target implements one (the
// batched shape a remote backend wants) and through target.Extend
// otherwise.
func (p *Pipeline) Run(ctx context.Context, target graph.Graph) (*Result, error) {
	metrics.init()
	start := time.Now()
	result := &Result{}

	scratch := graph.NewMemoryGraph()
	defer scratch.Close()

	// Step 1: Repository node.
	if err := scratch.AddNode(graph.Repository, graph.NodeData{
		Name: p.cfg.RepositoryURL,
		File: "",
		Meta: map[string]string{"commit_hash": p.cfg.CommitHash},
	}); err != nil {
		return nil, fmt.Errorf("builder: add repository node: %w", err)
	}

	// Step 2: walk the tree, classify every file, register Directory/File
	// nodes and one Language node per distinct language observed.
	loaded, err := p.loader.Load(p.cfg.RepoPath, p.cfg.ExcludeGlobs, p.cfg.MaxFileBytes)
	if err != nil {
		return nil, err
	}
	p.logger.Info("builder.pipeline.loaded", "files", len(loaded.Files), "skipped", loaded.SkipReasons,
		"package_managers", loaded.PackageManagers)

	seenDirs := map[string]bool{}
	seenLangs := map[string]bool{}
	for _, f := range loaded.Files {
		dir := filepath.Dir(f.Path)
		for dir != "." && dir != "/" && dir != "" && !seenDirs[dir] {
			seenDirs[dir] = true
			if err := scratch.AddNode(graph.Directory, graph.NodeData{Name: dir, File: dir}); err != nil {
				return nil, err
			}
			dir = filepath.Dir(dir)
		}
		if err := scratch.AddNode(graph.File, graph.NodeData{Name: f.Path, File: f.Path}); err != nil {
			return nil, err
		}
		if f.Stack != nil && !seenLangs[f.Stack.Language().String()] {
			seenLangs[f.Stack.Language().String()] = true
			if err := scratch.AddNode(graph.Language, graph.NodeData{Name: f.Stack.Language().String()}); err != nil {
				return nil, err
			}
		}
	}

	// Step 3: Libraries, read from manifest files directly.
	for _, f := range loaded.Files {
		if !f.Manifest {
			continue
		}
		content, readErr := os.ReadFile(f.FullPath)
		if readErr != nil {
			p.logger.Warn("builder.pipeline.manifest.read_error", "file", f.Path, "err", readErr)
			continue
		}
		if err := extract.ExtractLibraries(scratch, f.Path, content); err != nil {
			p.logger.Warn("builder.pipeline.manifest.parse_error", "file", f.Path, "err", err)
		}
	}

	// Steps 4-10: Stage1 per source file, bounded parallel, in scratch.
	var work []*fileWork
	for _, f := range loaded.Files {
		if f.Stack == nil {
			continue
		}
		source, readErr := os.ReadFile(f.FullPath)
		if readErr != nil {
			result.FilesFailed++
			p.logger.Warn("builder.pipeline.read_error", "file", f.Path, "err", readErr)
			continue
		}
		work = append(work, &fileWork{
			file:      f,
			extractor: extract.New(f.Stack, p.cfg.Resolver, f.Path),
			source:    source,
		})
	}

	err = forEachFile(ctx, work, p.cfg.Workers, func(ctx context.Context, w *fileWork) error {
		st, stErr := w.extractor.Stage1(ctx, scratch, w.source)
		if stErr != nil {
			metrics.filesFailed.Inc()
			p.logger.Warn("builder.pipeline.stage1_error", "file", w.file.Path, "err", stErr)
			return nil
		}
		w.structure = st
		metrics.filesParsed.Inc()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("builder: stage1: %w", err)
	}

	// Steps 11-14: Stage2, only now that every file's functions are
	// indexed — required for pass 12's single-candidate call heuristic.
	err = forEachFile(ctx, work, p.cfg.Workers, func(_ context.Context, w *fileWork) error {
		if w.structure == nil {
			return nil
		}
		defer w.structure.Close()
		if stErr := w.extractor.Stage2(scratch, w.structure); stErr != nil {
			p.logger.Warn("builder.pipeline.stage2_error", "file", w.file.Path, "err", stErr)
			return nil
		}
		result.FilesProcessed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("builder: stage2: %w", err)
	}

	nodes, edges := scratch.GetGraphSize()
	result.Nodes, result.Edges = nodes, edges
	metrics.nodesWritten.Add(float64(nodes))
	metrics.edgesWritten.Add(float64(edges))

	// Steps 15-16: flush to the target backend. If target is the scratch
	// graph's own kind this is a cheap Extend; a remote backend gets a
	// bulk UpsertNodes/UpsertEdges call instead of per-node round trips.
	if err := flush(scratch, target); err != nil {
		return nil, fmt.Errorf("builder: flush: %w", err)
	}
	if err := target.UpdateRepositoryHash(p.cfg.RepositoryURL, p.cfg.CommitHash); err != nil {
		p.logger.Warn("builder.pipeline.commit_hash_error", "err", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("builder.pipeline.complete",
		"files", result.FilesProcessed, "failed", result.FilesFailed,
		"nodes", result.Nodes, "edges", result.Edges, "duration", result.Duration)
	return result, nil
}

// bulkUpserter is satisfied by backends (Neo4jGraph) that can write many
// nodes/edges in one round trip.
type bulkUpserter interface {
	UpsertNodes(nodes []graph.Node) error
	UpsertEdges(edges []graph.Edge) error
}

func flush(scratch *graph.MemoryGraph, target graph.Graph) error {
	if up, ok := target.(bulkUpserter); ok {
		if err := up.UpsertNodes(scratch.AllNodes()); err != nil {
			return err
		}
		return up.UpsertEdges(scratch.AllEdges())
	}
	return target.Extend(scratch)
}
