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

package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kraklabs/codegraph/pkg/extract"
	"github.com/kraklabs/codegraph/pkg/graph"
)

// defaultBatchSize bounds how many files' subgraphs StreamingPipeline holds
// in memory at once before flushing to the target backend.
const defaultBatchSize = 200

// StreamingPipeline runs Pipeline's extraction and flush steps but never
// holds the whole repository's subgraph in memory. It writes the
// Repository, File and Library nodes straight to the target and adds no
// Directory or Language nodes. Source files are grouped into bounded
// batches, each batch runs Stage1 then Stage2 against its own scratch
// graph, and the batch is flushed and discarded before the next one starts.
// Call resolution's single-candidate heuristic only sees the batch it runs
// in, so a call whose target lives in a different batch goes unresolved —
// the tradeoff a first-ingest of a large monorepo accepts in exchange for
// bounded memory. Used by `cmd/codegraph ingest` for first-time ingestion
// of large repositories; pkg/update's incremental path never needs this
// because its changed-file sets are already small.
type StreamingPipeline struct {
	cfg        Config
	batchSize  int
	logger     *slog.Logger
	loader     *RepoLoader
	checkpoint *CheckpointStore
}

// NewStreaming builds a StreamingPipeline. batchSize <= 0 defaults to 200.
func NewStreaming(cfg Config, checkpointDir string, batchSize int) *StreamingPipeline {
	p := New(cfg, checkpointDir)
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &StreamingPipeline{
		cfg:        p.cfg,
		batchSize:  batchSize,
		logger:     p.logger,
		loader:     p.loader,
		checkpoint: p.checkpoint,
	}
}

// Run executes the pipeline batch by batch, checkpointing progress after
// each flush so a killed run can resume without re-walking already
// committed batches.
func (p *StreamingPipeline) Run(ctx context.Context, target graph.Graph) (*Result, error) {
	metrics.init()
	start := time.Now()
	result := &Result{}

	if err := target.AddNode(graph.Repository, graph.NodeData{
		Name: p.cfg.RepositoryURL,
		Meta: map[string]string{"commit_hash": p.cfg.CommitHash},
	}); err != nil {
		return nil, fmt.Errorf("builder: streaming: add repository node: %w", err)
	}

	loaded, err := p.loader.Load(p.cfg.RepoPath, p.cfg.ExcludeGlobs, p.cfg.MaxFileBytes)
	if err != nil {
		return nil, err
	}
	p.logger.Info("builder.streaming.loaded", "files", len(loaded.Files), "skipped", loaded.SkipReasons)

	for _, f := range loaded.Files {
		if err := target.AddNode(graph.File, graph.NodeData{Name: f.Path, File: f.Path}); err != nil {
			return nil, err
		}
		if f.Manifest {
			content, readErr := os.ReadFile(f.FullPath)
			if readErr != nil {
				p.logger.Warn("builder.streaming.manifest.read_error", "file", f.Path, "err", readErr)
				continue
			}
			if err := extract.ExtractLibraries(target, f.Path, content); err != nil {
				p.logger.Warn("builder.streaming.manifest.parse_error", "file", f.Path, "err", err)
			}
		}
	}

	cp, err := p.checkpoint.Load(p.cfg.RepositoryURL)
	if err != nil {
		return nil, fmt.Errorf("builder: streaming: load checkpoint: %w", err)
	}
	if cp == nil || cp.CommitHash != p.cfg.CommitHash {
		cp = &Checkpoint{RepositoryID: p.cfg.RepositoryURL, CommitHash: p.cfg.CommitHash, StartedAt: time.Now().Format(time.RFC3339)}
	}
	done := make(map[string]bool, len(cp.FilesCompleted))
	for _, path := range cp.FilesCompleted {
		done[path] = true
	}

	var sourceFiles []SourceFile
	for _, f := range loaded.Files {
		if f.Stack != nil && !done[f.Path] {
			sourceFiles = append(sourceFiles, f)
		}
	}

	for batchStart := 0; batchStart < len(sourceFiles); batchStart += p.batchSize {
		batchEnd := batchStart + p.batchSize
		if batchEnd > len(sourceFiles) {
			batchEnd = len(sourceFiles)
		}
		batch := sourceFiles[batchStart:batchEnd]

		stageStart := time.Now()
		n, e, completed, failed, err := p.runBatch(ctx, batch, target)
		if err != nil {
			return nil, fmt.Errorf("builder: streaming: batch %d-%d: %w", batchStart, batchEnd, err)
		}
		metrics.stageDuration.WithLabelValues("streaming_batch").Observe(time.Since(stageStart).Seconds())

		result.Nodes += n
		result.Edges += e
		result.FilesProcessed += len(completed)
		result.FilesFailed += failed

		cp.FilesCompleted = append(cp.FilesCompleted, completed...)
		cp.FilesProcessed += len(batch)
		cp.NodesCommitted += n
		cp.EdgesCommitted += e
		cp.LastUpdatedAt = time.Now().Format(time.RFC3339)
		if err := p.checkpoint.Save(cp); err != nil {
			p.logger.Warn("builder.streaming.checkpoint_error", "err", err)
		}
		p.logger.Info("builder.streaming.batch_flushed", "files", batchEnd, "of", len(sourceFiles))
	}

	if err := target.UpdateRepositoryHash(p.cfg.RepositoryURL, p.cfg.CommitHash); err != nil {
		p.logger.Warn("builder.streaming.commit_hash_error", "err", err)
	}
	if err := p.checkpoint.Clear(p.cfg.RepositoryURL); err != nil {
		p.logger.Warn("builder.streaming.checkpoint_clear_error", "err", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("builder.streaming.complete",
		"files", result.FilesProcessed, "failed", result.FilesFailed,
		"nodes", result.Nodes, "edges", result.Edges, "duration", result.Duration)
	return result, nil
}

func (p *StreamingPipeline) runBatch(ctx context.Context, batch []SourceFile, target graph.Graph) (nodes, edges int, completed []string, failed int, err error) {
	scratch := graph.NewMemoryGraph()
	defer scratch.Close()

	var work []*fileWork
	for _, f := range batch {
		source, readErr := os.ReadFile(f.FullPath)
		if readErr != nil {
			failed++
			p.logger.Warn("builder.streaming.read_error", "file", f.Path, "err", readErr)
			continue
		}
		work = append(work, &fileWork{
			file:      f,
			extractor: extract.New(f.Stack, p.cfg.Resolver, f.Path),
			source:    source,
		})
	}

	if runErr := forEachFile(ctx, work, p.cfg.Workers, func(ctx context.Context, w *fileWork) error {
		st, stErr := w.extractor.Stage1(ctx, scratch, w.source)
		if stErr != nil {
			metrics.filesFailed.Inc()
			p.logger.Warn("builder.streaming.stage1_error", "file", w.file.Path, "err", stErr)
			return nil
		}
		w.structure = st
		metrics.filesParsed.Inc()
		return nil
	}); runErr != nil {
		return 0, 0, nil, failed, runErr
	}

	if runErr := forEachFile(ctx, work, p.cfg.Workers, func(_ context.Context, w *fileWork) error {
		if w.structure == nil {
			return nil
		}
		defer w.structure.Close()
		if stErr := w.extractor.Stage2(scratch, w.structure); stErr != nil {
			p.logger.Warn("builder.streaming.stage2_error", "file", w.file.Path, "err", stErr)
			return nil
		}
		completed = append(completed, w.file.Path)
		return nil
	}); runErr != nil {
		return 0, 0, nil, failed, runErr
	}

	n, e := scratch.GetGraphSize()
	if err := flush(scratch, target); err != nil {
		return 0, 0, nil, failed, err
	}
	metrics.nodesWritten.Add(float64(n))
	metrics.edgesWritten.Add(float64(e))
	return n, e, completed, failed, nil
}
