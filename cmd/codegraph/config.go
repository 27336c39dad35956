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
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	"github.com/kraklabs/codegraph/pkg/vcs"
)

// repoFlags mirrors the repository coordinates §6 requires every command
// that touches the graph to accept: repo_url, repo_path, username,
// current_hash, branch, use_lsp. The pat is not a flag; ApplyEnv reads it
// from CODEGRAPH_PAT.
type repoFlags struct {
	repoURL     string
	repoPath    string
	username    string
	currentHash string
	branch      string
	useLSP      bool
}

func bindRepoFlags(fs *flag.FlagSet, r *repoFlags) {
	fs.StringVar(&r.repoURL, "repo-url", "", "Git URL to clone if --repo-path is not already a checkout")
	fs.StringVar(&r.repoPath, "repo-path", "", "Path to an existing repository checkout")
	fs.StringVar(&r.username, "username", "", "Git username for HTTPS auth (paired with CODEGRAPH_PAT)")
	fs.StringVar(&r.currentHash, "current-hash", "", "Commit hash to record as this build's HEAD (default: resolved from the checkout)")
	fs.StringVar(&r.branch, "branch", "", "Branch to clone/checkout")
	fs.BoolVar(&r.useLSP, "use-lsp", false, "Resolve calls with a Language Server instead of the heuristic fallback")
}

// ConfigDir returns the .codegraph directory under repoPath.
func ConfigDir(repoPath string) string {
	return filepath.Join(repoPath, ".codegraph")
}

// ConfigPath returns the project.yaml path under repoPath.
func ConfigPath(repoPath string) string {
	return filepath.Join(ConfigDir(repoPath), "project.yaml")
}

// loadProjectConfig merges, in increasing priority, a .codegraph/project.yaml
// file, environment variables (PAT, Neo4j credentials), and explicit CLI
// flags into one bootstrap.ProjectConfig.
func loadProjectConfig(globalConfigPath string, r repoFlags) (*bootstrap.ProjectConfig, error) {
	path := globalConfigPath
	if path == "" {
		base := r.repoPath
		if base == "" {
			base, _ = os.Getwd()
		}
		path = ConfigPath(base)
	}

	cfg, err := bootstrap.LoadProjectConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if r.repoURL != "" {
		cfg.RepoURL = r.repoURL
	}
	if r.repoPath != "" {
		cfg.RepoPath = r.repoPath
	}
	if r.username != "" {
		cfg.Username = r.username
	}
	if r.currentHash != "" {
		cfg.CurrentHash = r.currentHash
	}
	if r.branch != "" {
		cfg.Branch = r.branch
	}
	if r.useLSP {
		cfg.UseLSP = r.useLSP
	}
	return cfg, nil
}

// ensureCheckout makes sure cfg.RepoPath points at a checkout on disk,
// cloning cfg.RepoURL into a temp directory first if RepoPath is empty.
func ensureCheckout(cfg *bootstrap.ProjectConfig) error {
	if cfg.RepoPath != "" {
		return nil
	}
	dest, err := os.MkdirTemp("", "codegraph-checkout-*")
	if err != nil {
		return err
	}
	if err := vcs.Clone(cfg.RepoURL, cfg.Username, cfg.PAT, cfg.Branch, dest, nil); err != nil {
		_ = os.RemoveAll(dest)
		return err
	}
	cfg.RepoPath = dest
	return nil
}

// checkpointDir returns the directory pkg/builder checkpoints get written
// under for a given repository checkout.
func checkpointDir(repoPath string) string {
	return filepath.Join(ConfigDir(repoPath), "checkpoints")
}
