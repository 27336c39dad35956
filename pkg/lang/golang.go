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

package lang

import (
	"fmt"
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// Go is the Stack for Go source: functions, methods with a receiver
// (surfaced as ParentOf edges onto the receiver's type), struct/interface
// class definitions, net/http and common router handler registrations.
type Go struct{ BaseStack }

func (Go) Name() string            { return "go" }
func (Go) Language() syntax.Language { return syntax.Go }
func (Go) Extensions() []string    { return []string{".go"} }

func (Go) ClassDefinitionQuery() string {
	return fmt.Sprintf(`
		[
			(type_declaration
				(type_spec
					name: (type_identifier) @%[1]s
					type: (struct_type)))
			(type_declaration
				(type_spec
					name: (type_identifier) @%[1]s
					type: (interface_type)))
		] @%[2]s
	`, CaptureClassName, CaptureClassDefinition)
}

func (Go) FunctionDefinitionQuery() string {
	return fmt.Sprintf(`
		(function_declaration
			name: (identifier) @%[1]s
			parameters: (parameter_list) @%[2]s
			result: (_)? @%[3]s
			body: (block)) @%[4]s

		(method_declaration
			receiver: (parameter_list
				(parameter_declaration
					type: [
						(type_identifier) @%[5]s
						(pointer_type (type_identifier) @%[5]s)
					]))
			name: (field_identifier) @%[1]s
			parameters: (parameter_list) @%[2]s
			result: (_)? @%[3]s
			body: (block)) @%[4]s
	`, CaptureFunctionName, CaptureArguments, CaptureReturnTypes, CaptureFunctionDefinition, CaptureParentType)
}

func (Go) FunctionCallQuery() string {
	return fmt.Sprintf(`
		(call_expression
			function: [
				(identifier) @%[1]s
				(selector_expression
					operand: (identifier) @%[2]s
					field: (field_identifier) @%[1]s)
			]
			arguments: (argument_list)) @%[1]s.call
	`, CaptureFunctionCall, CaptureOperand)
}

func (Go) ImportsQuery() string {
	return fmt.Sprintf(`
		(import_spec
			path: (interpreted_string_literal) @%[1]s) @%[2]s
	`, CaptureImportsName, CaptureImports)
}

func (Go) VariablesQuery() string {
	return `
		(source_file
			(const_declaration) @variable_declaration
			(var_declaration) @variable_declaration)
	`
}

func (Go) DataModelQuery() string {
	return fmt.Sprintf(`
		(type_declaration
			(type_spec
				name: (type_identifier) @%[1]s
				type: (struct_type))) @%[2]s
	`, CaptureStructName, CaptureStruct)
}

func (Go) EndpointFinders() []string {
	return []string{
		fmt.Sprintf(`
			(call_expression
				function: (selector_expression
					operand: (identifier) @%[1]s
					field: (field_identifier) @%[2]s (#match? @%[2]s "^(HandleFunc|GET|POST|PUT|DELETE|PATCH|Handle)$"))
				arguments: (argument_list
					. (interpreted_string_literal) @%[3]s
					. (_) @%[4]s)) @%[5]s
		`, CaptureEndpointGroup, CaptureEndpointVerb, CaptureRoute, CaptureHandler, CaptureEndpoint),
	}
}

func (Go) RequestFinderQuery() string {
	return fmt.Sprintf(`
		(call_expression
			function: (selector_expression
				operand: (identifier)
				field: (field_identifier) @method (#match? @method "^(Get|Post|Put|Delete|Patch|Do)$"))
			arguments: (argument_list
				. (_) @%[1]s)) @%[2]s
	`, CaptureRoute, CaptureRequestCall)
}

func (Go) TestQuery() string {
	return fmt.Sprintf(`
		(function_declaration
			name: (identifier) @%[1]s (#match? @%[1]s "^Test")
			parameters: (parameter_list) @%[2]s
			body: (block)) @%[3]s
	`, CaptureFunctionName, CaptureArguments, CaptureFunctionDefinition)
}

func (Go) IntegrationTestQuery() string {
	return fmt.Sprintf(`
		(function_declaration
			name: (identifier) @%[1]s (#match? @%[1]s "^Test.*Integration")
			body: (block)) @%[2]s
	`, CaptureFunctionName, CaptureIntegrationTest)
}

func (Go) CommentQuery() string {
	return fmt.Sprintf(`(comment) @%s`, CaptureFunctionComment)
}

func (Go) IsTest(name, file string) bool {
	return strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Example")
}

func (Go) IsTestFile(path string) bool {
	return strings.HasSuffix(path, "_test.go")
}

func (Go) ClassifyTest(name, file, body string) TestKind {
	switch {
	case strings.Contains(file, "integration") || strings.Contains(strings.ToLower(name), "integration"):
		return TestIntegration
	case strings.HasPrefix(name, "TestE2E") || strings.Contains(strings.ToLower(name), "e2e"):
		return TestE2e
	default:
		return TestUnit
	}
}

// AddEndpointVerb reads the literal router method token (GET, POST, ...,
// or HandleFunc which carries no verb) captured by EndpointFinders before
// falling back to the handler-name-prefix heuristic every profile shares.
func (Go) AddEndpointVerb(rawCall, handlerName string) string {
	switch strings.ToUpper(rawCall) {
	case graph.VerbGet, graph.VerbPost, graph.VerbPut, graph.VerbDelete, graph.VerbPatch:
		return strings.ToUpper(rawCall)
	default:
		return verbFromHandlerPrefix(handlerName)
	}
}

// HandlerFinder resolves a Go HandleFunc's second argument, a bare
// function identifier or a method value (pkg.Type.Method), to the
// function name the extractor already indexed.
func (Go) HandlerFinder(handlerToken string) (string, bool) {
	token := strings.TrimSpace(handlerToken)
	if token == "" {
		return "", false
	}
	if idx := strings.LastIndex(token, "."); idx >= 0 {
		token = token[idx+1:]
	}
	return token, true
}

func (Go) FindFunctionParent(functionName, parentTypeCapture string) (string, bool) {
	if parentTypeCapture == "" {
		return "", false
	}
	return strings.TrimPrefix(parentTypeCapture, "*"), true
}

// CleanGraph tags Class nodes for struct declarations that never gained a
// method, the same "assumed vs actual" pass the pack's query module runs
// over every language: a struct used only as a plain value type is data,
// not a class in the knowledge graph's sense. The Graph interface has no
// single-node delete (only whole-file eviction), so the tag lets
// downstream consumers (query, coverage) filter these out without the
// extractor losing the node's edges.
func (Go) CleanGraph(g graph.Graph) {
	hasMethod := map[string]bool{}
	for _, n := range g.AllNodes() {
		if n.Kind != graph.Function {
			continue
		}
		if parent := n.Data.GetMeta(graph.MetaOperand); parent != "" {
			hasMethod[parent] = true
		}
	}
	for _, n := range g.AllNodes() {
		if n.Kind == graph.Class && !hasMethod[n.Data.Name] {
			_ = g.AddNode(n.Kind, n.Data.WithMeta("unused_class", "true"))
		}
	}
}
