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
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/vectorsearch"
)

var queryableKinds = map[string]graph.NodeKind{
	"function":  graph.Function,
	"class":     graph.Class,
	"endpoint":  graph.Endpoint,
	"datamodel": graph.DataModel,
	"feature":   graph.Feature,
	"page":      graph.Page,
}

func runQuery(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	var r repoFlags
	bindRepoFlags(fs, &r)
	kindFlag := fs.String("kind", "", "Restrict to one node kind (function, class, endpoint, datamodel, feature, page); default searches all")
	topK := fs.Int("limit", 10, "Number of results to return")
	timeout := fs.Duration("timeout", 30*time.Second, "Embedding request timeout")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: codegraph query [options] <text>

Embeds the query text and ranks graph nodes by cosine similarity to it.

Examples:
  codegraph query "parses a JWT and validates its claims"
  codegraph query --kind endpoint --limit 5 "uploads a file to object storage"

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: query text argument required")
		fs.Usage()
		os.Exit(1)
	}
	text := strings.Join(fs.Args(), " ")

	var kinds []graph.NodeKind
	if *kindFlag != "" {
		kind, ok := queryableKinds[strings.ToLower(*kindFlag)]
		if !ok {
			cgerrors.FatalError(cgerrors.NewConfigError("unknown --kind value", *kindFlag, "use one of: function, class, endpoint, datamodel, feature, page"), globals.JSON)
		}
		kinds = []graph.NodeKind{kind}
	} else {
		for _, k := range queryableKinds {
			kinds = append(kinds, k)
		}
	}

	cfg, err := loadProjectConfig(globals.Config, r)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	if err := cfg.Validate(); err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}

	logger := bootstrap.NewLogger(globals.Verbose > 0, globals.JSON)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	g, err := bootstrap.OpenGraph(ctx, *cfg, logger)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = g.Close() }()

	provider := embed.NewOllamaProvider(ollamaHost(), ollamaModel(), logger)
	vec, err := provider.Embed(ctx, text)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewBackendError("embedding request failed", err.Error(), "check OLLAMA_HOST is reachable", err), globals.JSON)
	}

	matches := vectorsearch.SearchAll(g, kinds, vec, *topK)

	if globals.JSON {
		// One compact line per match rather than a single JSON array: a
		// ranked result list is naturally consumed line-by-line (grep,
		// jq -c, head -n), and a caller piping --limit 10000 never has to
		// buffer the whole array before the first result is usable.
		for _, m := range matches {
			_ = output.JSONCompactTo(os.Stdout, matchToJSON(m))
		}
		return
	}
	printMatches(matches)
}

func matchToJSON(m vectorsearch.Match) map[string]any {
	return map[string]any{
		"kind":  string(m.Node.Kind),
		"name":  m.Node.Data.Name,
		"file":  m.Node.Data.File,
		"line":  m.Node.Data.Start,
		"score": m.Score,
	}
}

func printMatches(matches []vectorsearch.Match) {
	if len(matches) == 0 {
		ui.Warning("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tMATCH\tFILE:LINE")
	fmt.Fprintln(w, "-----\t-----\t---------")
	for _, m := range matches {
		fmt.Fprintf(w, "%s %.3f\t%s\t%s:%d\n",
			ui.ScoreBar(m.Score, 8), m.Score,
			ui.KindLabel(m.Node.Kind, m.Node.Data.Name),
			m.Node.Data.File, m.Node.Data.Start)
	}
	w.Flush()
	fmt.Printf("\n(%d results)\n", len(matches))
}
