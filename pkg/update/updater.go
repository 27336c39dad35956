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

// Package update implements the incremental updater (spec §4.6): given a
// repository's previously stored commit hash and its current one, it
// re-extracts only the files git reports as changed and restitches the
// graph around them, instead of rebuilding from scratch.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/codegraph/pkg/builder"
	"github.com/kraklabs/codegraph/pkg/extract"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/linker"
	"github.com/kraklabs/codegraph/pkg/resolver"
	"github.com/kraklabs/codegraph/pkg/vcs"
)

// Config describes one update request.
type Config struct {
	RepositoryURL string
	RepoPath      string
	CurrentHash   string
	StoredHash    string
	ExcludeGlobs  []string
	MaxFileBytes  int64
	Resolver      resolver.Resolver
	Logger        *slog.Logger
}

// Result summarizes one completed update.
type Result struct {
	FullBuild      bool
	FilesChanged   int
	FilesRemoved   int
	EdgesRestitched int
	APIEdgesLinked  int
	E2EEdgesLinked  int
}

// Updater runs the 6-step incremental algorithm against a graph backend.
type Updater struct {
	cfg    Config
	logger *slog.Logger
}

// New builds an Updater. cfg.Resolver defaults to resolver.None{}.
func New(cfg Config) *Updater {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolver.None{}
	}
	return &Updater{cfg: cfg, logger: logger}
}

// Run executes the updater against g. An empty StoredHash means there is
// nothing to diff against, so it performs a full build through pkg/builder
// followed by the linker, per spec §4.6's fallback clause.
func (u *Updater) Run(ctx context.Context, g graph.Graph) (*Result, error) {
	if u.cfg.StoredHash == "" {
		return u.fullBuild(ctx, g)
	}
	return u.incremental(ctx, g)
}

func (u *Updater) fullBuild(ctx context.Context, g graph.Graph) (*Result, error) {
	p := builder.New(builder.Config{
		RepositoryURL: u.cfg.RepositoryURL,
		RepoPath:      u.cfg.RepoPath,
		CommitHash:    u.cfg.CurrentHash,
		ExcludeGlobs:  u.cfg.ExcludeGlobs,
		MaxFileBytes:  u.cfg.MaxFileBytes,
		Resolver:      u.cfg.Resolver,
		Logger:        u.logger,
	}, "")
	buildResult, err := p.Run(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("update: full build: %w", err)
	}

	apiEdges, err := linker.LinkAPI(g)
	if err != nil {
		return nil, fmt.Errorf("update: link api: %w", err)
	}
	e2eEdges, err := linker.LinkE2E(g)
	if err != nil {
		return nil, fmt.Errorf("update: link e2e: %w", err)
	}
	return &Result{
		FullBuild:      true,
		FilesChanged:   buildResult.FilesProcessed,
		APIEdgesLinked: apiEdges,
		E2EEdgesLinked: e2eEdges,
	}, nil
}

func (u *Updater) incremental(ctx context.Context, g graph.Graph) (*Result, error) {
	// Step 1: ask the version-control interface for the changed file set.
	detector := vcs.NewDeltaDetector(u.cfg.RepoPath, u.logger)
	delta, err := detector.DetectDelta(u.cfg.StoredHash, u.cfg.CurrentHash)
	if err != nil {
		return nil, fmt.Errorf("update: detect delta: %w", err)
	}
	result := &Result{}
	if !delta.HasChanges() {
		u.logger.Info("update.incremental.no_changes", "hash", u.cfg.CurrentHash)
		if err := g.UpdateRepositoryHash(u.cfg.RepositoryURL, u.cfg.CurrentHash); err != nil {
			return nil, err
		}
		return result, nil
	}

	changed := delta.ChangedOrAdded()
	removed := delta.RemovedPaths()
	result.FilesChanged = len(changed)
	result.FilesRemoved = len(removed)

	// Step 2: capture incoming edges then evict every touched file's nodes,
	// for both sides of the delta — a changed file's old definitions must
	// go before the new ones are extracted, same as a removed file's.
	var incoming []graph.Edge
	for _, f := range append(append([]string{}, changed...), removed...) {
		incoming = append(incoming, g.RemoveNodesByFile(f)...)
	}

	// Step 3: re-run the full extractor on the changed set only. Deleted
	// files are left out: they have nothing left to extract.
	if err := u.reextract(ctx, g, changed); err != nil {
		return nil, fmt.Errorf("update: reextract: %w", err)
	}

	// Step 4: restitch. An edge survives if both its endpoints can still be
	// found by (kind, name, file) — start is allowed to have moved.
	result.EdgesRestitched = u.restitch(g, incoming)

	// Step 5: re-run the cross-repo linker.
	apiEdges, err := linker.LinkAPI(g)
	if err != nil {
		return nil, fmt.Errorf("update: link api: %w", err)
	}
	e2eEdges, err := linker.LinkE2E(g)
	if err != nil {
		return nil, fmt.Errorf("update: link e2e: %w", err)
	}
	result.APIEdgesLinked = apiEdges
	result.E2EEdgesLinked = e2eEdges

	// Step 6: commit the new hash.
	if err := g.UpdateRepositoryHash(u.cfg.RepositoryURL, u.cfg.CurrentHash); err != nil {
		return nil, fmt.Errorf("update: commit hash: %w", err)
	}

	u.logger.Info("update.incremental.complete",
		"changed", len(changed), "removed", len(removed),
		"restitched", result.EdgesRestitched,
		"api_edges", apiEdges, "e2e_edges", e2eEdges)
	return result, nil
}

func (u *Updater) reextract(ctx context.Context, g graph.Graph, changed []string) error {
	type work struct {
		relPath   string
		extractor *extract.Extractor
		structure *extract.Structure
	}
	var items []*work
	for _, relPath := range changed {
		if extract.ManifestFile(relPath) {
			content, readErr := os.ReadFile(filepath.Join(u.cfg.RepoPath, relPath))
			if readErr != nil {
				u.logger.Warn("update.reextract.manifest_read_error", "file", relPath, "err", readErr)
				continue
			}
			if err := extract.ExtractLibraries(g, relPath, content); err != nil {
				u.logger.Warn("update.reextract.manifest_parse_error", "file", relPath, "err", err)
			}
			continue
		}
		stack, ok := lang.ForFile(relPath, nil)
		if !ok {
			continue
		}
		items = append(items, &work{relPath: relPath, extractor: extract.New(stack, u.cfg.Resolver, relPath)})
	}

	for _, w := range items {
		source, readErr := os.ReadFile(filepath.Join(u.cfg.RepoPath, w.relPath))
		if readErr != nil {
			u.logger.Warn("update.reextract.read_error", "file", w.relPath, "err", readErr)
			continue
		}
		st, stErr := w.extractor.Stage1(ctx, g, source)
		if stErr != nil {
			u.logger.Warn("update.reextract.stage1_error", "file", w.relPath, "err", stErr)
			continue
		}
		w.structure = st
	}
	for _, w := range items {
		if w.structure == nil {
			continue
		}
		if err := w.extractor.Stage2(g, w.structure); err != nil {
			u.logger.Warn("update.reextract.stage2_error", "file", w.relPath, "err", err)
		}
		w.structure.Close()
	}
	return nil
}

func (u *Updater) restitch(g graph.Graph, incoming []graph.Edge) int {
	restitched := 0
	for _, e := range incoming {
		srcNode, srcOK := g.FindNodeByNameInFile(e.Source.Kind, e.Source.Key.Name, e.Source.Key.File)
		tgtNode, tgtOK := g.FindNodeByNameInFile(e.Target.Kind, e.Target.Key.Name, e.Target.Key.File)
		if !srcOK || !tgtOK {
			continue
		}
		restitch := e
		restitch.Source = graph.Ref{Kind: e.Source.Kind, Key: srcNode.Key()}
		restitch.Target = graph.Ref{Kind: e.Target.Kind, Key: tgtNode.Key()}
		if err := g.AddEdge(restitch); err != nil {
			u.logger.Warn("update.restitch.error", "edge", restitch.Kind, "err", err)
			continue
		}
		restitched++
	}
	return restitched
}
