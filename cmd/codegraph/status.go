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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	"github.com/kraklabs/codegraph/internal/contract"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/coverage"
	"github.com/kraklabs/codegraph/pkg/graph"
)

// StatusResult is the machine-readable shape of 'codegraph status'.
type StatusResult struct {
	RepoURL         string    `json:"repo_url"`
	Connected       bool      `json:"connected"`
	Nodes           int       `json:"nodes"`
	Edges           int       `json:"edges"`
	Functions       int       `json:"functions"`
	Endpoints       int       `json:"endpoints"`
	LastCommitHash  string    `json:"last_commit_hash,omitempty"`
	PackageManagers []string  `json:"package_managers,omitempty"`
	Verified        bool      `json:"verified"`
	Violations      []string  `json:"violations,omitempty"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var r repoFlags
	bindRepoFlags(fs, &r)
	verify := fs.Bool("verify", false, "Validate the graph's data-model invariants (key uniqueness, edge well-formedness, …)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: codegraph status [options]

Shows graph size, the last ingested commit hash, and detected package
managers for a repository. --verify additionally checks the graph's
data-model invariants, which a clean build should never violate.

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
	if err := cfg.Validate(); err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}

	logger := bootstrap.NewLogger(globals.Verbose > 0, globals.JSON)
	ctx := context.Background()

	result := &StatusResult{RepoURL: cfg.RepoURL, Timestamp: time.Now()}

	g, err := bootstrap.OpenGraph(ctx, *cfg, logger)
	if err != nil {
		result.Error = err.Error()
		printStatus(globals, result)
		os.Exit(cgerrors.ExitBackend)
	}
	defer func() { _ = g.Close() }()
	result.Connected = true

	result.Nodes, result.Edges = g.GetGraphSize()
	result.Functions = len(g.FindNodesByType(graph.Function))
	result.Endpoints = len(g.FindNodesByType(graph.Endpoint))
	result.LastCommitHash = lookupStoredHash(g, cfg.RepoURL)

	if cfg.RepoPath != "" {
		for _, pm := range coverage.Detect(cfg.RepoPath) {
			result.PackageManagers = append(result.PackageManagers, pm.String())
		}
	}

	if *verify {
		result.Verified = true
		for _, v := range contract.ValidateGraph(g) {
			result.Violations = append(result.Violations, v.String())
		}
	}

	printStatus(globals, result)
}

func printStatus(globals GlobalFlags, result *StatusResult) {
	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	if !result.Connected {
		fmt.Fprintf(os.Stderr, "Error: cannot connect to graph backend: %s\n", result.Error)
		return
	}
	fmt.Printf("Repository:       %s\n", result.RepoURL)
	fmt.Printf("Nodes / Edges:    %d / %d\n", result.Nodes, result.Edges)
	fmt.Printf("Functions:        %d\n", result.Functions)
	fmt.Printf("Endpoints:        %d\n", result.Endpoints)
	if result.LastCommitHash != "" {
		fmt.Printf("Last commit:      %s\n", result.LastCommitHash)
	} else {
		fmt.Printf("Last commit:      (never ingested)\n")
	}
	if len(result.PackageManagers) > 0 {
		fmt.Printf("Package managers: %v\n", result.PackageManagers)
	}
	if result.Verified {
		if len(result.Violations) == 0 {
			ui.Success("violations: none")
		} else {
			fmt.Println("Violations:")
			for _, v := range result.Violations {
				fmt.Println(ui.ViolationLine(v))
			}
		}
	}
}
