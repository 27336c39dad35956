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

// Package lang declares Stack, the per-language bundle of tree-sitter
// query strings and semantic hooks the extractor runs against a file. It
// is the Go-idiomatic rendering of the original implementation's Stack
// trait: a small required surface (the three queries the extractor cannot
// function without) plus optional capability methods. Languages embed
// BaseStack to get zero-value defaults for everything they don't need to
// override, the same way the original's trait-with-default-methods
// worked, without Go needing default interface methods.
package lang

import (
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// TestKind mirrors graph's test-kind meta values without importing the
// extractor's vocabulary back into the profile layer.
type TestKind string

const (
	TestUnit        TestKind = "unit"
	TestIntegration TestKind = "integration"
	TestE2e         TestKind = "e2e"
)

// Stack is the capability set a language profile supplies. Query string
// methods return "" when the language has no concept for that query;
// pkg/extract skips the corresponding pass rather than treating "" as an
// error.
type Stack interface {
	// Name is the profile's identifier, used by Registry and by meta.component.
	Name() string

	// Language selects the tree-sitter grammar pkg/syntax parses with.
	Language() syntax.Language

	// Extensions lists the file extensions this profile claims, e.g. ".go".
	Extensions() []string

	// Required queries.
	ClassDefinitionQuery() string
	FunctionDefinitionQuery() string
	FunctionCallQuery() string

	// Optional queries.
	ImportsQuery() string
	TraitsQuery() string
	VariablesQuery() string
	DataModelQuery() string
	DataModelWithinQuery() string
	PageQuery() string
	ComponentTemplateQuery() string
	EndpointFinders() []string
	RequestFinderQuery() string
	TestQuery() string
	IntegrationTestQuery() string
	CommentQuery() string
	IdentifierQuery() string
	ExtraCallsQueries() []string

	// Semantic hooks.
	IsTest(name, file string) bool
	IsTestFile(path string) bool
	ClassifyTest(name, file, body string) TestKind
	IsComponent(name string) bool
	IsLibFile(path string) bool
	AddEndpointVerb(rawCall, handlerName string) string
	FindEndpointParents(g graph.Graph, endpoint graph.Node) []graph.Node
	HandlerFinder(handlerToken string) (functionName string, ok bool)
	FindFunctionParent(functionName string, parentTypeCapture string) (parentName string, ok bool)
	FindTraitOperand(operandType string, g graph.Graph) (traitName string, ok bool)
	CleanGraph(g graph.Graph)
	TestIdentifierRegexp() string
}

// BaseStack implements every Stack method with the spec's stated default,
// so a concrete profile only needs to override what its language actually
// has. Embed it by value; it carries no state.
type BaseStack struct{}

func (BaseStack) ImportsQuery() string          { return "" }
func (BaseStack) TraitsQuery() string           { return "" }
func (BaseStack) VariablesQuery() string        { return "" }
func (BaseStack) DataModelQuery() string        { return "" }
func (BaseStack) DataModelWithinQuery() string  { return "" }
func (BaseStack) PageQuery() string             { return "" }
func (BaseStack) ComponentTemplateQuery() string { return "" }
func (BaseStack) EndpointFinders() []string     { return nil }
func (BaseStack) RequestFinderQuery() string    { return "" }
func (BaseStack) TestQuery() string             { return "" }
func (BaseStack) IntegrationTestQuery() string  { return "" }
func (BaseStack) CommentQuery() string          { return "" }
func (BaseStack) IdentifierQuery() string       { return "" }
func (BaseStack) ExtraCallsQueries() []string   { return nil }

func (BaseStack) IsTest(name, file string) bool { return false }

func (BaseStack) IsTestFile(path string) bool { return false }

func (BaseStack) ClassifyTest(name, file, body string) TestKind { return TestUnit }

func (BaseStack) IsComponent(name string) bool { return false }

// IsLibFile is the spec's stated default: a library file is identified by
// an absolute path, i.e. one outside the repository tree.
func (BaseStack) IsLibFile(path string) bool {
	return strings.HasPrefix(path, "/")
}

// AddEndpointVerb implements the spec's fallback chain's last link: if
// nothing more specific matched, default to GET. Profiles override this to
// try attribute-macro or method-call verb parsing first, then fall back to
// this default for the handler-name-prefix and final-GET links.
func (BaseStack) AddEndpointVerb(rawCall, handlerName string) string {
	return verbFromHandlerPrefix(handlerName)
}

// verbFromHandlerPrefix implements the handler-name-prefix fallback shared
// by every profile: get_/list_/find_/fetch_ -> GET, create_/add_/new_ ->
// POST, update_/edit_ -> PUT, patch_ -> PATCH, delete_/remove_ -> DELETE,
// else GET.
func verbFromHandlerPrefix(handlerName string) string {
	lower := strings.ToLower(handlerName)
	switch {
	case strings.HasPrefix(lower, "get_"), strings.HasPrefix(lower, "list_"), strings.HasPrefix(lower, "find_"), strings.HasPrefix(lower, "fetch_"):
		return graph.VerbGet
	case strings.HasPrefix(lower, "create_"), strings.HasPrefix(lower, "add_"), strings.HasPrefix(lower, "new_"):
		return graph.VerbPost
	case strings.HasPrefix(lower, "update_"), strings.HasPrefix(lower, "edit_"):
		return graph.VerbPut
	case strings.HasPrefix(lower, "patch_"):
		return graph.VerbPatch
	case strings.HasPrefix(lower, "delete_"), strings.HasPrefix(lower, "remove_"):
		return graph.VerbDelete
	default:
		return graph.VerbGet
	}
}

func (BaseStack) FindEndpointParents(g graph.Graph, endpoint graph.Node) []graph.Node { return nil }

// HandlerFinder is the fallback used when no definition resolver is
// available: assume the handler token names a function identically.
func (BaseStack) HandlerFinder(handlerToken string) (string, bool) {
	if handlerToken == "" {
		return "", false
	}
	return handlerToken, true
}

func (BaseStack) FindFunctionParent(functionName, parentTypeCapture string) (string, bool) {
	if parentTypeCapture == "" {
		return "", false
	}
	return parentTypeCapture, true
}

func (BaseStack) FindTraitOperand(operandType string, g graph.Graph) (string, bool) {
	return "", false
}

func (BaseStack) CleanGraph(g graph.Graph) {}

// DefaultTestIdentifierPattern matches every test-identifier form §4.5's
// E2E linking pass needs: a markup attribute on the frontend side
// (data-testid="submit-btn") and either Playwright binding on the test
// side (get_by_test_id('submit-btn') in Python, getByTestId('submit-btn')
// in TypeScript). Unmatched alternatives leave their capture group empty,
// so callers must scan every group, not just the first.
const DefaultTestIdentifierPattern = `data-testid=["']([^"']+)["']|get_by_test_id\(\s*["']([^"']+)["']\s*\)|getByTestId\(\s*["']([^"']+)["']\s*\)`

func (BaseStack) TestIdentifierRegexp() string { return DefaultTestIdentifierPattern }
