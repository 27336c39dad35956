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

import "fmt"

// NodeKind is the closed set of structural entities the system extracts.
type NodeKind string

const (
	Repository      NodeKind = "Repository"
	Language        NodeKind = "Language"
	Directory       NodeKind = "Directory"
	File            NodeKind = "File"
	Library         NodeKind = "Library"
	Import          NodeKind = "Import"
	Variable        NodeKind = "Variable"
	Class           NodeKind = "Class"
	Trait           NodeKind = "Trait"
	Instance        NodeKind = "Instance"
	Function        NodeKind = "Function"
	Test            NodeKind = "Test"
	UnitTest        NodeKind = "UnitTest"
	IntegrationTest NodeKind = "IntegrationTest"
	E2eTest         NodeKind = "E2eTest"
	Endpoint        NodeKind = "Endpoint"
	Request         NodeKind = "Request"
	DataModel       NodeKind = "DataModel"
	Page            NodeKind = "Page"
	Feature         NodeKind = "Feature"
)

// EdgeKind is the closed set of relationships between nodes.
type EdgeKind string

const (
	Contains      EdgeKind = "Contains"
	Calls         EdgeKind = "Calls"
	Uses          EdgeKind = "Uses"
	Operand       EdgeKind = "Operand"
	Of            EdgeKind = "Of"
	ParentOf      EdgeKind = "ParentOf"
	Handler       EdgeKind = "Handler"
	Renders       EdgeKind = "Renders"
	Imports       EdgeKind = "Imports"
	ArgOf         EdgeKind = "ArgOf"
	LinkedE2eTest EdgeKind = "LinkedE2eTest"
)

// Recognized meta keys. meta is intentionally a small string map rather than
// a struct: the set of attributes that apply to a node varies by kind and is
// extended by post-processing passes, not by schema migrations.
const (
	MetaVerb      = "verb"
	MetaHandler   = "handler"
	MetaOperand   = "operand"
	MetaTestKind  = "test_kind"
	MetaComponent = "component"
	MetaGroup     = "group"
	MetaVersion   = "version"
)

// Test kind values stored under MetaTestKind.
const (
	TestKindUnit        = "unit"
	TestKindIntegration = "integration"
	TestKindE2e         = "e2e"
)

// HTTP verbs a verified Endpoint can carry (testable property 7).
const (
	VerbGet    = "GET"
	VerbPost   = "POST"
	VerbPut    = "PUT"
	VerbDelete = "DELETE"
	VerbPatch  = "PATCH"
)

// NodeKey is the canonical identity of every node in the graph: a node's
// name, the file it was declared in, and its 0-based start line. Two nodes
// with the same key are the same node; re-ingesting one updates it in place.
type NodeKey struct {
	Name  string
	File  string
	Start int
}

// String renders the key as a stable, human-readable identifier, used in
// edge identities and as the sort key of the canonical JSONL export.
func (k NodeKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.File, k.Name, k.Start)
}

// NodeData is the common payload every node kind shares.
type NodeData struct {
	Name  string            `json:"name"`
	File  string            `json:"file"`
	Start int               `json:"start"`
	End   int               `json:"end"`
	Body  string            `json:"body,omitempty"`
	Docs  string             `json:"docs,omitempty"`
	Meta  map[string]string `json:"meta,omitempty"`

	// DataType is only meaningful for Instance nodes: the name of the
	// class/struct/interface the instance was declared with.
	DataType string `json:"data_type,omitempty"`

	// Embedding is a fixed-length vector assigned during post-processing,
	// used by vector search. Never set by the extractor itself.
	Embedding []float32 `json:"embedding,omitempty"`
}

// Key derives this node's canonical identity.
func (d NodeData) Key() NodeKey {
	return NodeKey{Name: d.Name, File: d.File, Start: d.Start}
}

// GetMeta reads a meta attribute, returning "" if absent.
func (d NodeData) GetMeta(key string) string {
	if d.Meta == nil {
		return ""
	}
	return d.Meta[key]
}

// WithMeta returns a copy of d with key set to value.
func (d NodeData) WithMeta(key, value string) NodeData {
	out := d
	out.Meta = make(map[string]string, len(d.Meta)+1)
	for k, v := range d.Meta {
		out.Meta[k] = v
	}
	out.Meta[key] = value
	return out
}

// Node pairs a node kind with its payload.
type Node struct {
	Kind NodeKind `json:"node_type"`
	Data NodeData `json:"node_data"`
}

// Key is a convenience accessor for Data.Key().
func (n Node) Key() NodeKey { return n.Data.Key() }

// Ref identifies one endpoint of an edge: the kind and key of a node that
// may or may not currently exist in the graph.
type Ref struct {
	Kind NodeKind
	Key  NodeKey
}

// Edge is a directed, typed relationship between two node refs. Calls edges
// additionally describe the call site itself.
type Edge struct {
	Kind   EdgeKind `json:"edge"`
	Source Ref      `json:"-"`
	Target Ref      `json:"-"`

	// Calls-only fields. CallStart/CallEnd are 0-based source lines of the
	// call expression; Operand is the receiver expression text, if any.
	CallStart int    `json:"call_start,omitempty"`
	CallEnd   int    `json:"call_end,omitempty"`
	CallOperand string `json:"operand,omitempty"`
}

// identity is the dedup key for idempotent AddEdge: (kind, source, target).
// Call-site fields are deliberately excluded so that re-extracting the same
// call does not produce a duplicate edge with a slightly different range.
func (e Edge) identity() string {
	return string(e.Kind) + "\x00" + string(e.Source.Kind) + "\x00" + e.Source.Key.String() +
		"\x00" + string(e.Target.Kind) + "\x00" + e.Target.Key.String()
}
