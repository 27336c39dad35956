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

package graph

// normalizeForStorage applies the one mutation AddNode always performs
// regardless of backend: an Endpoint with no verb defaults to GET
// (invariant 3 / testable property 7).
func normalizeForStorage(kind NodeKind, data NodeData) NodeData {
	if kind != Endpoint {
		return data
	}
	if data.GetMeta(MetaVerb) != "" {
		return data
	}
	return data.WithMeta(MetaVerb, VerbGet)
}
