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

package extract

import (
	"path"
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/lang"
	"github.com/kraklabs/codegraph/pkg/syntax"
)

// Pass 13: Component templates (component-oriented frontend). The
// template reference (e.g. Angular's @Component({templateUrl: ...})) is
// captured directly from the decorator already present in the file, so
// resolving the sibling template stays within the "no I/O but the
// resolver and the graph" rule: the Page node it points at is created or
// looked up by name, never read off disk here.
func (e *Extractor) extractComponentTemplates(tree *syntax.Tree, g graph.Graph) error {
	matches := e.runOptional(tree, e.Stack.ComponentTemplateQuery())
	if len(matches) == 0 {
		return nil
	}

	classes := g.FindNodesByType(graph.Class)
	var owner *graph.Node
	for i := range classes {
		if classes[i].Data.File == e.File && e.Stack.IsComponent(classes[i].Data.Name) {
			owner = &classes[i]
			break
		}
	}
	if owner == nil {
		return nil
	}

	for _, m := range matches {
		key, ok := textOf(m, lang.CaptureTemplateKey)
		if !ok || key != "templateUrl" {
			continue
		}
		value, ok := textOf(m, lang.CaptureTemplateValue)
		if !ok {
			continue
		}
		templateName := strings.Trim(value, `"'`)
		pageName := path.Base(templateName)

		if err := g.AddNode(graph.Page, graph.NodeData{Name: pageName, File: e.File}); err != nil {
			return err
		}
		if err := g.AddEdge(graph.Edge{
			Kind:   graph.Renders,
			Source: graph.Ref{Kind: graph.Class, Key: owner.Key()},
			Target: graph.Ref{Kind: graph.Page, Key: graph.NodeKey{Name: pageName, File: e.File}},
		}); err != nil {
			return err
		}
	}
	return nil
}
