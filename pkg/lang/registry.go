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

import "strings"

// registered is the closed set of language profiles the builder dispatches
// on. Adding a language means adding a Stack implementation here, not
// changing the extractor.
var registered = []Stack{
	Go{},
	Python{},
	Angular{},
	TypeScript{},
}

// ForFile resolves the Stack that owns path, given its extension and
// (for the Angular/TypeScript overlap) the file's own source text. Angular
// is tried before plain TypeScript since its Extensions() is the more
// specific suffix; before either suffix match, isAngularComponent gives
// .ts files a look at their source, so a .ts file carrying an @Component
// decorator but named without the .component.ts convention resolves to
// Angular.
func ForFile(path string, source []byte) (Stack, bool) {
	lower := strings.ToLower(path)

	if strings.HasSuffix(lower, ".ts") && isAngularComponent(source) {
		return Angular{}, true
	}

	for _, s := range registered {
		for _, ext := range s.Extensions() {
			if strings.HasSuffix(lower, ext) {
				return s, true
			}
		}
	}

	return nil, false
}

func isAngularComponent(source []byte) bool {
	return strings.Contains(string(source), "@Component(")
}

// All returns every registered profile, used by the builder to report
// which languages a build recognizes and by the registry completeness
// test.
func All() []Stack {
	out := make([]Stack, len(registered))
	copy(out, registered)
	return out
}
