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

// Capture names are a closed vocabulary: every Stack query binds syntactic
// subtrees to one of these names, and pkg/extract consumes only these
// names. A language that has no concept for a given capture simply omits
// the query that would produce it.
const (
	CaptureFunctionName        = "function_name"
	CaptureFunctionDefinition  = "function_definition"
	CaptureArguments           = "arguments"
	CaptureReturnTypes         = "return_types"
	CaptureParentType          = "parent_type"
	CaptureFunctionCall        = "function_call"
	CaptureOperand             = "operand"
	CaptureClassName           = "class_name"
	CaptureClassDefinition     = "class_definition"
	CaptureClassParent         = "class_parent"
	CaptureIncludedModules     = "included_modules"
	CaptureTraitName           = "trait_name"
	CaptureTrait               = "trait"
	CaptureImports             = "imports"
	CaptureImportsFrom         = "imports_from"
	CaptureImportsName         = "imports_name"
	CaptureLibraryName         = "library_name"
	CaptureLibraryVersion      = "library_version"
	CaptureLibrary             = "library"
	CaptureInstanceName        = "instance_name"
	CaptureEndpoint            = "endpoint"
	CaptureEndpointAlias       = "endpoint_alias"
	CaptureRoute               = "route"
	CaptureHandler             = "handler"
	CaptureHandlerActionsArray = "handler_actions_array"
	CaptureEndpointVerb        = "endpoint_verb"
	CaptureEndpointGroup       = "endpoint_group"
	CaptureRequestCall         = "request_call"
	CaptureCollectionItem      = "collection_item"
	CaptureMemberItem          = "member_item"
	CaptureResourceItem        = "resource_item"
	CaptureStructName          = "struct_name"
	CaptureStruct              = "struct"
	CapturePage                = "page"
	CapturePagePaths           = "page_paths"
	CapturePageComponent       = "page_component"
	CapturePageChild           = "page_child"
	CapturePageHeader          = "page_header"
	CaptureIntegrationTest     = "integration_test"
	CaptureE2eTestName         = "e2e_test_name"
	CaptureFunctionComment     = "function_comment"
	CaptureTemplateKey         = "template_key"
	CaptureTemplateValue       = "template_value"
)
