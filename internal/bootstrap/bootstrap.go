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

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"log/slog"

	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/pkg/graph"
)

// ProjectConfig is the repository coordinates and backend selection the CLI
// needs before a build can start. Fields mirror spec §6's external CLI
// surface plus the Neo4j connection fields for the remote backend.
type ProjectConfig struct {
	RepoURL     string `yaml:"repo_url"`
	RepoPath    string `yaml:"repo_path"`
	Username    string `yaml:"username"`
	PAT         string `yaml:"-"`
	CurrentHash string `yaml:"-"`
	Branch      string `yaml:"branch"`
	UseLSP      bool   `yaml:"use_lsp"`

	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUsername string `yaml:"neo4j_username"`
	Neo4jPassword string `yaml:"-"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	JSONLBase string `yaml:"jsonl_base"`
}

// LoadProjectConfig reads a .codegraph/project.yaml file. Secrets (PAT,
// Neo4j password) are never stored in the file; they come from environment
// variables layered on afterward by ApplyEnv.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectConfig{}, nil
		}
		return nil, cgerrors.NewConfigError("cannot read project config", err.Error(), fmt.Sprintf("check that %s exists and is readable", path), err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cgerrors.NewConfigError("cannot parse project config", err.Error(), "fix the YAML syntax in "+path, err)
	}
	return &cfg, nil
}

// ApplyEnv layers secrets and overrides from the environment onto cfg.
// Called after LoadProjectConfig so the YAML file never has to carry them.
func (cfg *ProjectConfig) ApplyEnv() {
	if v := os.Getenv("CODEGRAPH_PAT"); v != "" {
		cfg.PAT = v
	}
	if v := os.Getenv("CODEGRAPH_NEO4J_PASSWORD"); v != "" {
		cfg.Neo4jPassword = v
	}
	if v := os.Getenv("CODEGRAPH_NEO4J_URI"); v != "" {
		cfg.Neo4jURI = v
	}
}

// Validate checks the minimum fields required to run a build: either a
// repo_url (to clone) or a repo_path (already on disk) must be set.
func (cfg ProjectConfig) Validate() error {
	if cfg.RepoURL == "" && cfg.RepoPath == "" {
		return cgerrors.NewConfigError("no repository specified", "neither repo_url nor repo_path is set", "pass --repo-url or --repo-path", nil)
	}
	if cfg.Neo4jURI != "" && (cfg.Neo4jUsername == "" || cfg.Neo4jPassword == "") {
		return cgerrors.NewConfigError("incomplete Neo4j configuration", "neo4j_uri is set but username/password is missing", "set CODEGRAPH_NEO4J_PASSWORD and neo4j_username", nil)
	}
	return nil
}

// NewLogger builds the single process-lifetime logger, configured before
// any worker goroutine starts (design note: one process-lifetime logger,
// never per-package globals).
func NewLogger(debug, jsonOutput bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

const neo4jPingTimeout = 5 * time.Second

// OpenGraph selects and opens the backend named by cfg: Neo4j when
// Neo4jURI is set, otherwise an in-process ordered graph (the canonical
// build target for JSONL export).
func OpenGraph(ctx context.Context, cfg ProjectConfig, logger *slog.Logger) (graph.Graph, error) {
	if cfg.Neo4jURI == "" {
		logger.Info("bootstrap.graph.open", "backend", "ordered")
		return graph.NewOrderedGraph(), nil
	}

	logger.Info("bootstrap.graph.open", "backend", "neo4j", "uri", cfg.Neo4jURI)
	g, err := graph.NewNeo4jGraph(ctx, cfg.Neo4jURI, cfg.Neo4jUsername, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return nil, cgerrors.NewBackendError("cannot open Neo4j backend", err.Error(), "check CODEGRAPH_NEO4J_URI and credentials", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, neo4jPingTimeout)
	defer cancel()
	if err := g.Ping(pingCtx); err != nil {
		_ = g.Close()
		return nil, cgerrors.NewBackendError("cannot reach Neo4j", err.Error(), "check that the database is running and reachable", err)
	}
	return g, nil
}
