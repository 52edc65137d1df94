// Package graphmodel is the graph data model (§4.6): nodes, edges, and the
// deduplication rules that translate relational rows into them. It is
// grounded directly on the teacher's internal/graph.Node/Edge/Graph — the
// same adjacency-map shape, with a side-table (attrIndex here, pkColumns
// there) giving every table a lookup distinct from the main structure.
package graphmodel

import "github.com/dbsmedya/goxplore/internal/metadata"

// Label is one of the base node labels of §4.6; AAG augments a node's
// Labels slice with frequency/distinction labels on top of these.
const (
	LabelKey          = "Key"
	LabelAttribute    = "Attribute"
	LabelAttributeBin = "AttributeBin"
)

// EdgeType is the closed set of base edge tags of §4.6; AAG edges use a
// disjoint set of types (HIGH_RELATION, MEDIUM_RELATION, LOW_RELATION,
// UNASSIGNED) defined alongside the AAG generator that produces them.
type EdgeType string

const (
	HasAttrVal  EdgeType = "HAS_ATTR_VAL"
	ConnectedTo EdgeType = "CONNECTED_TO"
	AssignedBin EdgeType = "ASSIGNED_BIN"
)

// NodeID is a stable integer identity, assigned in creation order.
type NodeID int64

// Node is one graph vertex (§4.6). Value is set for Attribute and
// AttributeBin nodes; Key nodes carry the row's primary-key value there
// too, since a Key node's "value" is just its PK cell.
type Node struct {
	ID          NodeID
	Labels      []string
	Name        string
	Table       string // owning table; "" only for a node predating this field in a persisted graph
	Variable    string // owning variable/column; empty for Key nodes
	Value       metadata.Value
	Description string
	HasRefRange bool
	RefLow      float64
	RefHigh     float64
}

// Edge is one directed, typed relationship (§4.6).
type Edge struct {
	Source NodeID
	Target NodeID
	Type   EdgeType
}

// attrKey identifies an attribute triple for dedup: two structurally
// identical (table, variable, value) triples collapse to one node.
type attrKey struct {
	table    string
	variable string
	value    metadata.Value
}

// binKey identifies a bin node: one per (table, variable, bin-name).
type binKey struct {
	table    string
	variable string
	bin      string
}

// Graph is the mutable build target of a translation pass; it holds every
// node and edge produced so far plus the side-indices needed to dedup
// attribute/bin nodes and to resolve FK→PK edges across tables.
type Graph struct {
	nodes     []*Node
	edges     []Edge
	attrIndex map[attrKey]NodeID
	binIndex  map[binKey]NodeID
	keyIndex  map[string]map[string]NodeID    // table -> raw PK string -> node
	keyOrder  map[string][]NodeID             // table -> Key node IDs, creation order
	varIndex  map[string]map[string][]NodeID // table -> variable -> attribute node IDs, creation order
	adj       map[NodeID][]NodeID             // undirected adjacency, see Neighbors
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		attrIndex: make(map[attrKey]NodeID),
		binIndex:  make(map[binKey]NodeID),
		keyIndex:  make(map[string]map[string]NodeID),
		keyOrder:  make(map[string][]NodeID),
		varIndex:  make(map[string]map[string][]NodeID),
	}
}

func (g *Graph) addNode(n *Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return n.ID
}

// AddKeyNode creates a fresh Key node for one row's primary-key value.
// Key nodes never dedup across rows, even when two tables share a PK
// value — they are label-separated by table via rawPK plus keyIndex.
func (g *Graph) AddKeyNode(table string, pkValue metadata.Value, rawPK string) NodeID {
	id := g.addNode(&Node{Labels: []string{LabelKey}, Name: table, Table: table, Value: pkValue})
	if g.keyIndex[table] == nil {
		g.keyIndex[table] = make(map[string]NodeID)
	}
	g.keyIndex[table][rawPK] = id
	g.keyOrder[table] = append(g.keyOrder[table], id)
	return id
}

// ResolveKey looks up the Key node for table's row with the given raw PK
// string, as recorded by a prior AddKeyNode call.
func (g *Graph) ResolveKey(table, rawPK string) (NodeID, bool) {
	id, ok := g.keyIndex[table][rawPK]
	return id, ok
}

// KeysForTable returns every Key node created for table, in creation
// order — the member universe a group selector filters down from.
func (g *Graph) KeysForTable(table string) []NodeID {
	return g.keyOrder[table]
}

// AddAttributeNode returns the existing node for (table, variable, value)
// if one was already created, or creates and indexes a new one.
func (g *Graph) AddAttributeNode(table, variable string, value metadata.Value) NodeID {
	key := attrKey{table: table, variable: variable, value: value}
	if id, ok := g.attrIndex[key]; ok {
		return id
	}
	id := g.addNode(&Node{Labels: []string{LabelAttribute}, Name: variable, Table: table, Variable: variable, Value: value})
	g.attrIndex[key] = id
	if g.varIndex[table] == nil {
		g.varIndex[table] = make(map[string][]NodeID)
	}
	g.varIndex[table][variable] = append(g.varIndex[table][variable], id)
	return id
}

// AttributeNodesFor returns every distinct attribute node ever created for
// (table, variable), in creation order — the full set of values a group's
// members could have reached for that column.
func (g *Graph) AttributeNodesFor(table, variable string) []NodeID {
	return g.varIndex[table][variable]
}

// AddBinNode returns the existing bin node for (table, variable, bin) or
// creates one, carrying the reference range it was computed from.
func (g *Graph) AddBinNode(table, variable, bin string, refLow, refHigh float64) NodeID {
	key := binKey{table: table, variable: variable, bin: bin}
	if id, ok := g.binIndex[key]; ok {
		return id
	}
	id := g.addNode(&Node{
		Labels:      []string{LabelAttributeBin},
		Name:        bin,
		Table:       table,
		Variable:    variable,
		HasRefRange: true,
		RefLow:      refLow,
		RefHigh:     refHigh,
	})
	g.binIndex[key] = id
	return id
}

// AddEdge records a directed, typed edge between two existing nodes and
// indexes it both ways for Neighbors.
func (g *Graph) AddEdge(source, target NodeID, edgeType EdgeType) {
	g.edges = append(g.edges, Edge{Source: source, Target: target, Type: edgeType})
	if g.adj == nil {
		g.adj = make(map[NodeID][]NodeID)
	}
	g.adj[source] = append(g.adj[source], target)
	g.adj[target] = append(g.adj[target], source)
}

// Neighbors returns every node directly connected to id by an edge in
// either direction, regardless of edge type.
func (g *Graph) Neighbors(id NodeID) []NodeID { return g.adj[id] }

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns every edge in creation order.
func (g *Graph) Edges() []Edge { return g.edges }
