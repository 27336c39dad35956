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

// Package main implements the codegraph CLI: build and query a code
// knowledge graph for a repository checkout.
//
// Usage:
//
//	codegraph build   [options]   Build the graph from scratch
//	codegraph ingest  [options]   Stream-build or incrementally update a large repository
//	codegraph clear   [options]   Delete a repository's nodes/edges
//	codegraph query   [options]   Vector-search the graph
//	codegraph status  [options]   Show graph size and last indexed commit
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/ui"
)

// GlobalFlags are accepted before the subcommand name and threaded through
// to every command.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
	Config  string
}

func main() {
	var globals GlobalFlags
	fs := flag.NewFlagSet("codegraph", flag.ContinueOnError)
	fs.BoolVar(&globals.JSON, "json", false, "Output machine-readable JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (-v, -vv)")
	fs.StringVarP(&globals.Config, "config", "c", "", "Path to .codegraph/project.yaml")
	fs.SetInterspersed(false)

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	ui.InitColors(globals.NoColor)

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "build":
		runBuild(rest, globals)
	case "ingest":
		runIngest(rest, globals)
	case "clear":
		runClear(rest, globals)
	case "query":
		runQuery(rest, globals)
	case "status":
		runStatus(rest, globals)
	case "help", "-h", "--help":
		fs.Usage()
	default:
		fmt.Fprintf(os.Stderr, "codegraph: unknown command %q\n\n", command)
		fs.Usage()
		os.Exit(1)
	}
}

const usageText = `codegraph - code knowledge graph CLI

Usage:
  codegraph <command> [options]

Commands:
  build     Build the graph for a repository from scratch
  ingest    Stream-build a large repository, or incrementally update one
  clear     Delete a repository's nodes and edges from the graph
  query     Vector-search the graph by natural-language text
  status    Show graph size and the last indexed commit

Global Options:
  --json          Output machine-readable JSON
  -q, --quiet     Suppress progress output
  --no-color      Disable colored output
  -v, --verbose   Increase log verbosity
  -c, --config    Path to .codegraph/project.yaml

Environment Variables:
  CODEGRAPH_PAT             Git personal access token for --repo-url clones
  CODEGRAPH_NEO4J_PASSWORD  Neo4j password, when neo4j_uri is configured
  CODEGRAPH_NEO4J_URI       Overrides neo4j_uri from project.yaml
  OLLAMA_HOST               Ollama base URL for 'codegraph query' (default http://localhost:11434)
  OLLAMA_EMBED_MODEL        Embedding model name (default nomic-embed-text)

Run 'codegraph <command> --help' for command-specific options.
`
