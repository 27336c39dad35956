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

// TypeScript is the Stack for plain TypeScript/JavaScript and React:
// classes, arrow-function and function-declaration components, JSX
// rendering, and fetch/axios request calls. Every file it owns, .tsx and
// .jsx included, parses with the TypeScript grammar (Language returns
// syntax.TypeScript); the TSX grammar is not selected.
type TypeScript struct{ BaseStack }

func (TypeScript) Name() string { return "typescript" }

func (TypeScript) Language() syntax.Language { return syntax.TypeScript }

func (TypeScript) Extensions() []string { return []string{".ts", ".tsx", ".js", ".jsx"} }

func (TypeScript) ClassDefinitionQuery() string {
	return fmt.Sprintf(`
		(class_declaration
			name: (type_identifier) @%s
			body: (class_body)) @%s
	`, CaptureClassName, CaptureClassDefinition)
}

func (TypeScript) FunctionDefinitionQuery() string {
	return fmt.Sprintf(`
		[
			(function_declaration
				name: (identifier) @%[1]s
				parameters: (formal_parameters) @%[2]s
				return_type: (_)? @%[3]s
				body: (statement_block)) @%[4]s

			(variable_declarator
				name: (identifier) @%[1]s
				value: (arrow_function
					parameters: (formal_parameters) @%[2]s
					return_type: (_)? @%[3]s
					body: [(statement_block) (expression)])) @%[4]s

			(method_definition
				name: (property_identifier) @%[1]s
				parameters: (formal_parameters) @%[2]s
				return_type: (_)? @%[3]s
				body: (statement_block)) @%[4]s
		]
	`, CaptureFunctionName, CaptureArguments, CaptureReturnTypes, CaptureFunctionDefinition)
}

func (TypeScript) FunctionCallQuery() string {
	return fmt.Sprintf(`
		(call_expression
			function: [
				(identifier) @%[1]s
				(member_expression
					object: (identifier) @%[2]s
					property: (property_identifier) @%[1]s)
			]
			arguments: (arguments)) @%[1]s.call
	`, CaptureFunctionCall, CaptureOperand)
}

func (TypeScript) ImportsQuery() string {
	return fmt.Sprintf(`
		(import_statement
			source: (string) @%[1]s) @%[2]s
	`, CaptureImportsName, CaptureImports)
}

func (TypeScript) DataModelQuery() string {
	return fmt.Sprintf(`
		[
			(interface_declaration
				name: (type_identifier) @%[1]s
				body: (object_type)) @%[2]s
			(type_alias_declaration
				name: (type_identifier) @%[1]s
				value: (object_type)) @%[2]s
		]
	`, CaptureStructName, CaptureStruct)
}

func (TypeScript) PageQuery() string {
	return fmt.Sprintf(`
		(export_statement
			declaration: [
				(function_declaration name: (identifier) @%[1]s)
				(lexical_declaration (variable_declarator name: (identifier) @%[1]s))
			]) @%[2]s
	`, CapturePageComponent, CapturePage)
}

func (TypeScript) ComponentTemplateQuery() string {
	return fmt.Sprintf(`
		(jsx_element
			open_tag: (jsx_opening_element
				name: (identifier) @%[1]s)) @%[2]s
	`, CaptureTemplateKey, CaptureTemplateValue)
}

func (TypeScript) RequestFinderQuery() string {
	return fmt.Sprintf(`
		[
			(call_expression
				function: (identifier) @fetch_fn (#eq? @fetch_fn "fetch")
				arguments: (arguments
					. (string) @%[1]s)) @%[2]s
			(call_expression
				function: (member_expression
					object: (identifier) @%[3]s (#match? @%[3]s "(axios|client|api)")
					property: (property_identifier) @method (#match? @method "^(get|post|put|delete|patch)$"))
				arguments: (arguments
					. (string) @%[1]s)) @%[2]s
		]
	`, CaptureRoute, CaptureRequestCall, CaptureOperand)
}

func (TypeScript) TestQuery() string {
	return fmt.Sprintf(`
		(call_expression
			function: (identifier) @test_fn (#match? @test_fn "^(it|test)$")
			arguments: (arguments
				. (string) @%[1]s
				. (arrow_function body: (statement_block) @%[2]s))) @%[3]s
	`, CaptureFunctionName, CaptureArguments, CaptureFunctionDefinition)
}

func (TypeScript) IntegrationTestQuery() string {
	return fmt.Sprintf(`
		(call_expression
			function: (identifier) @describe_fn (#eq? @describe_fn "describe")
			arguments: (arguments
				. (string) @%[1]s (#match? @%[1]s "[Ii]ntegration"))) @%[2]s
	`, CaptureFunctionName, CaptureIntegrationTest)
}

func (TypeScript) CommentQuery() string {
	return fmt.Sprintf(`(comment) @%s`, CaptureFunctionComment)
}

func (TypeScript) IsTest(name, file string) bool {
	return strings.Contains(file, ".test.") || strings.Contains(file, ".spec.")
}

func (TypeScript) IsTestFile(path string) bool {
	return strings.Contains(path, ".test.") || strings.Contains(path, ".spec.")
}

func (ts TypeScript) ClassifyTest(name, file, body string) TestKind {
	lower := strings.ToLower(file)
	switch {
	case strings.Contains(lower, "e2e") || strings.Contains(lower, "cypress") || strings.Contains(lower, "playwright"):
		return TestE2e
	case strings.Contains(lower, "integration"):
		return TestIntegration
	default:
		return TestUnit
	}
}

func (TypeScript) IsComponent(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (TypeScript) AddEndpointVerb(rawCall, handlerName string) string {
	switch strings.ToUpper(rawCall) {
	case graph.VerbGet, graph.VerbPost, graph.VerbPut, graph.VerbDelete, graph.VerbPatch:
		return strings.ToUpper(rawCall)
	default:
		return verbFromHandlerPrefix(handlerName)
	}
}

// TestIdentifierRegexp is inherited from BaseStack: TypeScript frontend
// code and TypeScript E2E tests need the same alternation as every other
// language (see lang.DefaultTestIdentifierPattern).
