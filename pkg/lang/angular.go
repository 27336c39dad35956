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

	"github.com/kraklabs/codegraph/pkg/syntax"
)

// Angular has no tree-sitter grammar of its own. It embeds TypeScript for
// every query and parses with the same grammar, layering component-file
// detection (@Component decorator, *.component.ts naming) and template
// querying on top, matching how the pack's own query module treats
// Angular as "typescript grammar plus decorator conventions".
type Angular struct {
	TypeScript
}

func (Angular) Name() string { return "angular" }

// Extensions overlaps TypeScript's .ts; pkg/lang's registry resolves the
// overlap by preferring Angular for a .component.ts name or for any .ts
// file whose source contains an @Component( decorator, per registry.go.
// Sibling .component.html files are not looked at.
func (Angular) Extensions() []string { return []string{".component.ts"} }

func (Angular) ClassDefinitionQuery() string {
	return fmt.Sprintf(`
		(decorator
			(call_expression
				function: (identifier) @decorator_name (#eq? @decorator_name "Component")))? @component_decorator
		(class_declaration
			name: (type_identifier) @%s
			body: (class_body)) @%s
	`, CaptureClassName, CaptureClassDefinition)
}

func (Angular) PageQuery() string {
	return fmt.Sprintf(`
		(class_declaration
			name: (type_identifier) @%[1]s
			body: (class_body)) @%[2]s
	`, CapturePageComponent, CapturePage)
}

func (Angular) ComponentTemplateQuery() string {
	return fmt.Sprintf(`
		(call_expression
			function: (identifier) @decorator_fn (#eq? @decorator_fn "Component")
			arguments: (arguments
				(object
					(pair
						key: (property_identifier) @%[1]s (#match? @%[1]s "^(templateUrl|template|selector)$")
						value: (_) @%[2]s)))) @component_meta
	`, CaptureTemplateKey, CaptureTemplateValue)
}

func (Angular) IsComponent(name string) bool {
	return strings.HasSuffix(name, "Component")
}

func (Angular) Language() syntax.Language { return syntax.TypeScript }
