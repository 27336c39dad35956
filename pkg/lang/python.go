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

// Python is the Stack for Flask/FastAPI/Django-style Python: classes with
// methods, module-level functions, route decorators, and pytest/unittest
// test discovery.
type Python struct{ BaseStack }

func (Python) Name() string              { return "python" }
func (Python) Language() syntax.Language { return syntax.Python }
func (Python) Extensions() []string      { return []string{".py"} }

func (Python) ClassDefinitionQuery() string {
	return fmt.Sprintf(`
		(class_definition
			name: (identifier) @%s
			body: (block)) @%s
	`, CaptureClassName, CaptureClassDefinition)
}

func (Python) FunctionDefinitionQuery() string {
	return fmt.Sprintf(`
		(class_definition
			name: (identifier) @%[5]s
			body: (block
				(function_definition
					name: (identifier) @%[1]s
					parameters: (parameters) @%[2]s
					return_type: (_)? @%[3]s
					body: (block)) @%[4]s))

		(function_definition
			name: (identifier) @%[1]s
			parameters: (parameters) @%[2]s
			return_type: (_)? @%[3]s
			body: (block)) @%[4]s
	`, CaptureFunctionName, CaptureArguments, CaptureReturnTypes, CaptureFunctionDefinition, CaptureParentType)
}

func (Python) FunctionCallQuery() string {
	return fmt.Sprintf(`
		(call
			function: [
				(identifier) @%[1]s
				(attribute
					object: (identifier) @%[2]s
					attribute: (identifier) @%[1]s)
			]
			arguments: (argument_list)) @%[1]s.call
	`, CaptureFunctionCall, CaptureOperand)
}

func (Python) ImportsQuery() string {
	return fmt.Sprintf(`
		[
			(import_statement
				name: (dotted_name) @%[1]s) @%[2]s
			(import_from_statement
				module_name: (dotted_name) @imports_from_module
				name: (dotted_name) @%[1]s) @%[2]s
		]
	`, CaptureImportsName, CaptureImports)
}

func (Python) DataModelQuery() string {
	return fmt.Sprintf(`
		(class_definition
			name: (identifier) @%[1]s
			superclasses: (argument_list
				(identifier) @base (#match? @base "(BaseModel|Model|Schema)$"))
			body: (block)) @%[2]s
	`, CaptureStructName, CaptureStruct)
}

func (Python) EndpointFinders() []string {
	return []string{
		fmt.Sprintf(`
			(decorated_definition
				(decorator
					(call
						function: (attribute
							object: (identifier) @%[1]s
							attribute: (identifier) @%[2]s (#match? @%[2]s "^(route|get|post|put|delete|patch)$"))
						arguments: (argument_list
							. (string) @%[3]s))) @%[4]s
				definition: (function_definition
					name: (identifier) @%[5]s)) @%[6]s
		`, CaptureEndpointGroup, CaptureEndpointVerb, CaptureRoute, CaptureEndpointAlias, CaptureHandler, CaptureEndpoint),
	}
}

func (Python) RequestFinderQuery() string {
	return fmt.Sprintf(`
		(call
			function: (attribute
				object: (identifier) @%[1]s (#match? @%[1]s "(requests|client|session)")
				attribute: (identifier) @method (#match? @method "^(get|post|put|delete|patch)$"))
			arguments: (argument_list
				. (string) @%[2]s)) @%[3]s
	`, CaptureOperand, CaptureRoute, CaptureRequestCall)
}

func (Python) TestQuery() string {
	return fmt.Sprintf(`
		(function_definition
			name: (identifier) @%[1]s (#match? @%[1]s "^test_")
			parameters: (parameters) @%[2]s
			body: (block)) @%[3]s
	`, CaptureFunctionName, CaptureArguments, CaptureFunctionDefinition)
}

func (Python) CommentQuery() string {
	return fmt.Sprintf(`(comment) @%s`, CaptureFunctionComment)
}

func (Python) IsTest(name, file string) bool {
	return strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "Test")
}

func (Python) IsTestFile(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py")
}

func (Python) ClassifyTest(name, file, body string) TestKind {
	switch {
	case strings.Contains(file, "integration"):
		return TestIntegration
	case strings.Contains(file, "e2e") || strings.Contains(strings.ToLower(name), "e2e"):
		return TestE2e
	default:
		return TestUnit
	}
}

func (Python) AddEndpointVerb(rawCall, handlerName string) string {
	switch strings.ToUpper(rawCall) {
	case graph.VerbGet, graph.VerbPost, graph.VerbPut, graph.VerbDelete, graph.VerbPatch:
		return strings.ToUpper(rawCall)
	case "ROUTE", "":
		return verbFromHandlerPrefix(handlerName)
	default:
		return strings.ToUpper(rawCall)
	}
}

func (Python) FindFunctionParent(functionName, parentTypeCapture string) (string, bool) {
	if parentTypeCapture == "" {
		return "", false
	}
	return parentTypeCapture, true
}

func (Python) IsComponent(name string) bool { return false }
