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

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// neo4jBatchSize is the canonical page size for batched node/edge upserts
// and for paginated edge queries.
const neo4jBatchSize = 256

// pingTimeout bounds the connectivity check performed by Ping; every other
// call inherits the caller's context and is not independently bounded.
const pingTimeout = 5 * time.Second

// Neo4jGraph is the "remote graph database" backend: every mutation is
// batched into Cypher UNWIND statements of at most neo4jBatchSize rows, and
// every read is translated into a MATCH query. It satisfies the same Graph
// contract as MemoryGraph and OrderedGraph, so the extractor and builder
// pipeline never special-case it.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraph opens a driver against uri and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, uri, username, password, database string) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: new driver: %w", err)
	}
	g := &Neo4jGraph{driver: driver, database: database}
	if err := g.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return g, nil
}

var _ RemoteGraph = (*Neo4jGraph)(nil)

// Ping verifies connectivity within the 5-second budget the resource model
// reserves for remote-backend connection checks.
func (g *Neo4jGraph) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j: connectivity check: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) run(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, g.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database))
}

// AddNode upserts a single node. Callers doing bulk work should prefer
// UpsertNodes, which batches at neo4jBatchSize.
func (g *Neo4jGraph) AddNode(kind NodeKind, data NodeData) error {
	return g.UpsertNodes([]Node{{Kind: kind, Data: data}})
}

// UpsertNodes batches node upserts in pages of neo4jBatchSize, keyed by
// NodeKey (name, file, start) per the MERGE clause below.
func (g *Neo4jGraph) UpsertNodes(nodes []Node) error {
	ctx := context.Background()
	for start := 0; start < len(nodes); start += neo4jBatchSize {
		end := min(start+neo4jBatchSize, len(nodes))
		batch := nodes[start:end]

		byKind := make(map[NodeKind][]map[string]any)
		for _, n := range batch {
			n.Data = normalizeForStorage(n.Kind, n.Data)
			byKind[n.Kind] = append(byKind[n.Kind], nodeDataToProps(n.Data))
		}
		for kind, rows := range byKind {
			cypher := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (n:%s {name: row.name, file: row.file, start: row.start})
SET n += row`, string(kind))
			if _, err := g.run(ctx, cypher, map[string]any{"rows": rows}); err != nil {
				return fmt.Errorf("neo4j: upsert %s nodes: %w", kind, err)
			}
		}
	}
	return nil
}

// AddEdge upserts a single edge. Bulk callers should prefer UpsertEdges.
func (g *Neo4jGraph) AddEdge(edge Edge) error {
	return g.UpsertEdges([]Edge{edge})
}

// UpsertEdges batches edge upserts in pages of neo4jBatchSize. Edges are
// only meaningfully written once both endpoints exist; MATCH simply finds
// zero rows for a dangling reference, which is how the backend implements
// "drop edges with a missing endpoint" without an explicit existence check.
func (g *Neo4jGraph) UpsertEdges(edges []Edge) error {
	ctx := context.Background()
	for start := 0; start < len(edges); start += neo4jBatchSize {
		end := min(start+neo4jBatchSize, len(edges))
		batch := edges[start:end]

		type edgeGroup struct {
			srcKind, tgtKind NodeKind
			kind             EdgeKind
		}
		grouped := make(map[edgeGroup][]map[string]any)
		for _, e := range batch {
			key := edgeGroup{e.Source.Kind, e.Target.Kind, e.Kind}
			grouped[key] = append(grouped[key], map[string]any{
				"src_name": e.Source.Key.Name, "src_file": e.Source.Key.File, "src_start": e.Source.Key.Start,
				"tgt_name": e.Target.Key.Name, "tgt_file": e.Target.Key.File, "tgt_start": e.Target.Key.Start,
				"call_start": e.CallStart, "call_end": e.CallEnd, "operand": e.CallOperand,
			})
		}
		for key, rows := range grouped {
			cypher := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (s:%s {name: row.src_name, file: row.src_file, start: row.src_start})
MATCH (t:%s {name: row.tgt_name, file: row.tgt_file, start: row.tgt_start})
MERGE (s)-[r:%s]->(t)
SET r.call_start = row.call_start, r.call_end = row.call_end, r.operand = row.operand`,
				string(key.srcKind), string(key.tgtKind), string(key.kind))
			if _, err := g.run(ctx, cypher, map[string]any{"rows": rows}); err != nil {
				return fmt.Errorf("neo4j: upsert %s edges: %w", key.kind, err)
			}
		}
	}
	return nil
}

func nodeDataToProps(d NodeData) map[string]any {
	props := map[string]any{
		"name": d.Name, "file": d.File, "start": d.Start, "end": d.End,
		"body": d.Body, "docs": d.Docs, "data_type": d.DataType,
	}
	for k, v := range d.Meta {
		props["meta_"+k] = v
	}
	return props
}

func (g *Neo4jGraph) FindNodesByType(kind NodeKind) []Node {
	return g.queryNodes(fmt.Sprintf("MATCH (n:%s) RETURN n", kind), nil)
}

func (g *Neo4jGraph) FindNodesByName(kind NodeKind, name string) []Node {
	return g.queryNodes(fmt.Sprintf("MATCH (n:%s {name: $name}) RETURN n", kind), map[string]any{"name": name})
}

func (g *Neo4jGraph) FindNodeByNameInFile(kind NodeKind, name, file string) (Node, bool) {
	nodes := g.queryNodes(fmt.Sprintf("MATCH (n:%s {name: $name, file: $file}) RETURN n LIMIT 1", kind),
		map[string]any{"name": name, "file": file})
	if len(nodes) == 0 {
		return Node{}, false
	}
	return nodes[0], true
}

func (g *Neo4jGraph) FindNodesWithEdgeType(srcKind, tgtKind NodeKind, edgeKind EdgeKind) []Node {
	cypher := fmt.Sprintf("MATCH (s:%s)-[:%s]->(:%s) RETURN DISTINCT s", srcKind, edgeKind, tgtKind)
	return g.queryNodes(cypher, nil)
}

func (g *Neo4jGraph) FindResourceNodes(kind NodeKind, verb, normalizedPath string) []Node {
	cypher := fmt.Sprintf("MATCH (n:%s {name: $name}) WHERE n.meta_verb = $verb RETURN n", kind)
	return g.queryNodes(cypher, map[string]any{"name": normalizedPath, "verb": verb})
}

func (g *Neo4jGraph) FindHandlersForEndpoint(endpoint Node) []Node {
	cypher := fmt.Sprintf(`MATCH (e:%s {name: $name, file: $file, start: $start})-[:%s]->(h:%s) RETURN h`,
		endpoint.Kind, Handler, Function)
	key := endpoint.Key()
	return g.queryNodes(cypher, map[string]any{"name": key.Name, "file": key.File, "start": key.Start})
}

func (g *Neo4jGraph) FindTopLevelFunctions() []Node {
	cypher := fmt.Sprintf(`MATCH (f:%s) WHERE NOT ()-[:%s]->(f) RETURN f`, Function, Operand)
	return g.queryNodes(cypher, nil)
}

func (g *Neo4jGraph) FindDataModelAt(file string, line int) (Node, bool) {
	cypher := fmt.Sprintf(`MATCH (d:%s {file: $file}) WHERE d.start <= $line AND d.end >= $line RETURN d LIMIT 1`, DataModel)
	nodes := g.queryNodes(cypher, map[string]any{"file": file, "line": line})
	if len(nodes) == 0 {
		return Node{}, false
	}
	return nodes[0], true
}

func (g *Neo4jGraph) RemoveNodesByFile(file string) []Edge {
	ctx := context.Background()
	incoming := g.queryEdgesIncomingTo(file)

	_, _ = g.run(ctx, `MATCH (n {file: $file}) DETACH DELETE n`, map[string]any{"file": file})
	return incoming
}

func (g *Neo4jGraph) queryEdgesIncomingTo(file string) []Edge {
	ctx := context.Background()
	var out []Edge
	for skip := 0; ; skip += neo4jBatchSize {
		cypher := `MATCH (s)-[r]->(t {file: $file}) WHERE s.file <> $file
RETURN labels(s)[0] AS sk, s.name AS sname, s.file AS sfile, s.start AS sstart,
       labels(t)[0] AS tk, t.name AS tname, t.file AS tfile, t.start AS tstart,
       type(r) AS kind
SKIP $skip LIMIT $limit`
		result, err := g.run(ctx, cypher, map[string]any{"file": file, "skip": skip, "limit": neo4jBatchSize})
		if err != nil || len(result.Records) == 0 {
			break
		}
		for _, rec := range result.Records {
			out = append(out, recordToEdge(rec))
		}
		if len(result.Records) < neo4jBatchSize {
			break
		}
	}
	return out
}

func (g *Neo4jGraph) GetGraphSize() (nodes, edges int) {
	ctx := context.Background()
	if r, err := g.run(ctx, "MATCH (n) RETURN count(n) AS c", nil); err == nil && len(r.Records) == 1 {
		if v, ok := r.Records[0].Get("c"); ok {
			nodes = int(v.(int64))
		}
	}
	if r, err := g.run(ctx, "MATCH ()-[r]->() RETURN count(r) AS c", nil); err == nil && len(r.Records) == 1 {
		if v, ok := r.Records[0].Get("c"); ok {
			edges = int(v.(int64))
		}
	}
	return nodes, edges
}

func (g *Neo4jGraph) CountEdgesOfType(kind EdgeKind) int {
	ctx := context.Background()
	r, err := g.run(ctx, fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS c", kind), nil)
	if err != nil || len(r.Records) != 1 {
		return 0
	}
	v, _ := r.Records[0].Get("c")
	count, _ := v.(int64)
	return int(count)
}

func (g *Neo4jGraph) UpdateRepositoryHash(repoURL, hash string) error {
	ctx := context.Background()
	_, err := g.run(ctx, fmt.Sprintf(`MATCH (r:%s {name: $url}) SET r.meta_commit_hash = $hash`, Repository),
		map[string]any{"url": repoURL, "hash": hash})
	return err
}

// Extend streams other's nodes and edges into this backend in batches,
// which for a remote store is cheaper than the per-item upsert path.
func (g *Neo4jGraph) Extend(other Graph) error {
	if err := g.UpsertNodes(other.AllNodes()); err != nil {
		return err
	}
	return g.UpsertEdges(other.AllEdges())
}

func (g *Neo4jGraph) AllNodes() []Node {
	var out []Node
	for _, kind := range allNodeKinds {
		out = append(out, g.FindNodesByType(kind)...)
	}
	return out
}

func (g *Neo4jGraph) AllEdges() []Edge {
	ctx := context.Background()
	var out []Edge
	for skip := 0; ; skip += neo4jBatchSize {
		cypher := `MATCH (s)-[r]->(t)
RETURN labels(s)[0] AS sk, s.name AS sname, s.file AS sfile, s.start AS sstart,
       labels(t)[0] AS tk, t.name AS tname, t.file AS tfile, t.start AS tstart,
       type(r) AS kind
SKIP $skip LIMIT $limit`
		result, err := g.run(ctx, cypher, map[string]any{"skip": skip, "limit": neo4jBatchSize})
		if err != nil || len(result.Records) == 0 {
			break
		}
		for _, rec := range result.Records {
			out = append(out, recordToEdge(rec))
		}
		if len(result.Records) < neo4jBatchSize {
			break
		}
	}
	return out
}

func (g *Neo4jGraph) Close() error {
	return g.driver.Close(context.Background())
}

func (g *Neo4jGraph) queryNodes(cypher string, params map[string]any) []Node {
	ctx := context.Background()
	result, err := g.run(ctx, cypher, params)
	if err != nil {
		return nil
	}
	var out []Node
	for _, rec := range result.Records {
		v, ok := rec.Values[0].(neo4j.Node)
		if !ok {
			continue
		}
		out = append(out, recordNodeToNode(v))
	}
	return out
}

func recordNodeToNode(n neo4j.Node) Node {
	kind := NodeKind("")
	if len(n.Labels) > 0 {
		kind = NodeKind(n.Labels[0])
	}
	data := NodeData{Meta: map[string]string{}}
	for k, v := range n.Props {
		switch k {
		case "name":
			data.Name, _ = v.(string)
		case "file":
			data.File, _ = v.(string)
		case "start":
			data.Start = toInt(v)
		case "end":
			data.End = toInt(v)
		case "body":
			data.Body, _ = v.(string)
		case "docs":
			data.Docs, _ = v.(string)
		case "data_type":
			data.DataType, _ = v.(string)
		default:
			if len(k) > 5 && k[:5] == "meta_" {
				if s, ok := v.(string); ok {
					data.Meta[k[5:]] = s
				}
			}
		}
	}
	return Node{Kind: kind, Data: data}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func recordToEdge(rec *neo4j.Record) Edge {
	get := func(k string) string {
		v, _ := rec.Get(k)
		s, _ := v.(string)
		return s
	}
	getInt := func(k string) int {
		v, _ := rec.Get(k)
		return toInt(v)
	}
	return Edge{
		Kind:   EdgeKind(get("kind")),
		Source: Ref{Kind: NodeKind(get("sk")), Key: NodeKey{Name: get("sname"), File: get("sfile"), Start: getInt("sstart")}},
		Target: Ref{Kind: NodeKind(get("tk")), Key: NodeKey{Name: get("tname"), File: get("tfile"), Start: getInt("tstart")}},
	}
}

var allNodeKinds = []NodeKind{
	Repository, Language, Directory, File, Library, Import, Variable, Class, Trait,
	Instance, Function, Test, UnitTest, IntegrationTest, E2eTest, Endpoint, Request,
	DataModel, Page, Feature,
}
