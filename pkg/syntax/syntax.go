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

package syntax

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies which tree-sitter grammar a Tree was parsed with.
// Angular has no grammar of its own: its profile parses with the
// TypeScript grammar and layers its own component-file heuristics on top
// (pkg/lang/angular.go).
type Language int

const (
	Go Language = iota
	Python
	JavaScript
	TypeScript
	TSX
)

func (l Language) String() string {
	switch l {
	case Go:
		return "go"
	case Python:
		return "python"
	case JavaScript:
		return "javascript"
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	default:
		return "unknown"
	}
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case Go:
		return golang.GetLanguage()
	case Python:
		return python.GetLanguage()
	case JavaScript:
		return javascript.GetLanguage()
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		panic(fmt.Sprintf("syntax: unknown language %d", l))
	}
}

// Tree is a parsed syntax tree plus the source it was parsed from, needed
// to resolve capture text spans.
type Tree struct {
	lang   Language
	source []byte
	tree   *sitter.Tree
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Parse parses code as lang. Context cancellation aborts the parse.
func Parse(ctx context.Context, code []byte, lang Language) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", lang, err)
	}
	return &Tree{lang: lang, source: code, tree: tree}, nil
}

// Capture is one named subtree bound by a query match, with its text and
// position resolved eagerly so callers never need to touch source bytes
// or a *sitter.Node themselves.
type Capture struct {
	Node       *sitter.Node
	Text       string
	StartPoint sitter.Point
	EndPoint   sitter.Point
	StartByte  uint32
	EndByte    uint32
}

// Match is one query match, keyed by the closed capture-name vocabulary
// declared in pkg/lang/captures.go.
type Match struct {
	Captures map[string]Capture
}

var queryCache sync.Map // cacheKey string -> *sitter.Query

func queryCacheKey(lang Language, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%d:%s", lang, hex.EncodeToString(sum[:]))
}

// compileQuery compiles and caches a query for (lang, query). An invalid
// query template is a QueryError: a programming bug in a language profile,
// not a recoverable runtime condition, so it panics rather than returning
// an error a caller might swallow.
func compileQuery(lang Language, query string) *sitter.Query {
	key := queryCacheKey(lang, query)
	if v, ok := queryCache.Load(key); ok {
		return v.(*sitter.Query)
	}
	q, err := sitter.NewQuery([]byte(query), lang.grammar())
	if err != nil {
		panic(fmt.Sprintf("syntax: invalid query for %s: %v\nquery:\n%s", lang, err, query))
	}
	actual, _ := queryCache.LoadOrStore(key, q)
	return actual.(*sitter.Query)
}

// RunQuery evaluates query against tree and returns matches in source
// order: ascending start row, then start column of the match's earliest
// capture (§5's within-stage ordering guarantee).
func RunQuery(tree *Tree, query string) ([]Match, error) {
	if tree == nil || tree.tree == nil {
		return nil, fmt.Errorf("syntax: nil tree")
	}

	q := compileQuery(tree.lang, query)

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, tree.tree.RootNode())

	var matches []Match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		captures := make(map[string]Capture, len(m.Captures))
		for _, c := range m.Captures {
			name := q.CaptureNameForId(c.Index)
			node := c.Node
			captures[name] = Capture{
				Node:       node,
				Text:       node.Content(tree.source),
				StartPoint: node.StartPoint(),
				EndPoint:   node.EndPoint(),
				StartByte:  node.StartByte(),
				EndByte:    node.EndByte(),
			}
		}
		matches = append(matches, Match{Captures: captures})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ri, ci := matchStart(matches[i])
		rj, cj := matchStart(matches[j])
		if ri != rj {
			return ri < rj
		}
		return ci < cj
	})

	return matches, nil
}

func matchStart(m Match) (row, col uint32) {
	first := true
	for _, c := range m.Captures {
		if first || c.StartPoint.Row < row || (c.StartPoint.Row == row && c.StartPoint.Column < col) {
			row, col = c.StartPoint.Row, c.StartPoint.Column
			first = false
		}
	}
	return row, col
}
