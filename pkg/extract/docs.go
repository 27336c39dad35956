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
	"strings"

	"github.com/kraklabs/codegraph/pkg/syntax"
)

// attachDocs finds the comment block immediately preceding startLine (the
// 0-based row the doc-bearing declaration starts on), tolerating up to two
// blank lines between the last comment and the declaration. Multiple
// adjacent comment lines are concatenated in source order with leading
// comment markers stripped.
func attachDocs(comments []syntax.Match, startLine int) string {
	type commentLine struct {
		row  int
		text string
	}
	var lines []commentLine
	for _, m := range comments {
		c, ok := m.Captures["function_comment"]
		if !ok {
			continue
		}
		lines = append(lines, commentLine{row: int(c.StartPoint.Row), text: c.Text})
	}

	// Walk backward from startLine, collecting a contiguous run of comment
	// rows allowing gaps of at most two blank lines.
	var block []string
	cursor := startLine
	for i := len(lines) - 1; i >= 0; i-- {
		l := lines[i]
		if l.row >= startLine {
			continue
		}
		gap := cursor - l.row - 1
		if gap > 2 {
			break
		}
		block = append(block, stripCommentMarkers(l.text))
		cursor = l.row
	}

	// block was built walking backward; reverse to source order.
	for i, j := 0, len(block)-1; i < j; i, j = i+1, j-1 {
		block[i], block[j] = block[j], block[i]
	}
	return strings.TrimSpace(strings.Join(block, "\n"))
}

func stripCommentMarkers(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "///")
	t = strings.TrimPrefix(t, "//")
	t = strings.TrimPrefix(t, "/**")
	t = strings.TrimPrefix(t, "/*")
	t = strings.TrimSuffix(t, "*/")
	t = strings.TrimPrefix(t, "#")
	t = strings.TrimPrefix(t, "*")
	return strings.TrimSpace(t)
}
