// SPDX-License-Identifier: MIT

// Package store holds the O(1) id->node map and each node's raw
// property/edge/rollup storage. It knows nothing about indexes,
// rollup recomputation, or change events — those are composed on top
// by the Graph type — but it enforces the write-boundary type check
// (spec §3 "type safety") and edge sequence de-duplication.
package store

import (
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/schema"
)

// Node is the in-memory record for one entity. Properties, Edges, and
// Rollups are parallel arrays indexed by the owning type's small
// integer ids, not maps, since every node of a type has the same
// shape and a slice avoids the per-node map overhead at 10^5+ scale.
type Node struct {
	Id     ids.NodeId
	Type   ids.TypeId
	Props  []ids.Value
	Edges  [][]ids.NodeId
	Rollup []ids.Value
}

func (n *Node) Property(id ids.PropertyId) ids.Value {
	if int(id) >= len(n.Props) {
		return ids.Null()
	}
	return n.Props[id]
}

func (n *Node) EdgeTargets(id ids.EdgeId) []ids.NodeId {
	if int(id) >= len(n.Edges) {
		return nil
	}
	return n.Edges[id]
}

func (n *Node) HasEdgeTarget(id ids.EdgeId, target ids.NodeId) bool {
	for _, t := range n.EdgeTargets(id) {
		if t == target {
			return true
		}
	}
	return false
}

func (n *Node) RollupValue(id ids.RollupId) ids.Value {
	if int(id) >= len(n.Rollup) {
		return ids.Null()
	}
	return n.Rollup[id]
}

// SetRollup overwrites a derived field. Only the rollup cache calls
// this; it is exported so that package stays the sole owner of a
// node's storage layout without the rollup cache reaching into
// unexported fields.
func (n *Node) SetRollup(id ids.RollupId, v ids.Value) {
	n.Rollup[id] = v
}

// Store is the node table for one graph instance.
type Store struct {
	schema *schema.Schema
	nodes  map[ids.NodeId]*Node
	nextId ids.NodeId
}

func New(s *schema.Schema) *Store {
	return &Store{schema: s, nodes: make(map[ids.NodeId]*Node)}
}

func (st *Store) Len() int { return len(st.nodes) }

func (st *Store) Get(id ids.NodeId) (*Node, bool) {
	n, ok := st.nodes[id]
	return n, ok
}

// Insert allocates a new id and a zero-valued node shaped for typeId,
// applying props where given. props with an unknown key or a kind
// that disagrees with the schema are rejected before any mutation —
// either the whole insert succeeds or none of it is visible.
func (st *Store) Insert(typeId ids.TypeId, props map[string]ids.Value) (*Node, error) {
	t := st.schema.Type(typeId)
	if t == nil {
		return nil, &TypeError{Msg: "unknown type"}
	}
	resolved := make([]ids.Value, len(t.Properties))
	for i := range resolved {
		resolved[i] = ids.Null()
	}
	for name, v := range props {
		propId, ok := t.PropertyByName(name)
		if !ok {
			return nil, &TypeError{Msg: "unknown property " + name + " on type " + t.Name}
		}
		if !v.IsNull() && v.Kind() != t.Property(propId).Kind {
			return nil, &TypeError{Msg: "property " + name + " on type " + t.Name + " expects kind " + t.Property(propId).Kind.String()}
		}
		resolved[propId] = v
	}

	id := st.nextId
	st.nextId++

	n := &Node{
		Id:     id,
		Type:   typeId,
		Props:  resolved,
		Edges:  make([][]ids.NodeId, len(t.Edges)),
		Rollup: make([]ids.Value, len(t.Rollups)),
	}
	for i := range n.Rollup {
		n.Rollup[i] = ids.Null()
	}
	st.nodes[id] = n
	return n, nil
}

// SetProperty type-checks and writes a single property, returning the
// prior value so callers (the index manager, the rollup cache) can
// decide whether anything dependent on it needs updating.
func (st *Store) SetProperty(n *Node, name string, v ids.Value) (old ids.Value, err error) {
	t := st.schema.Type(n.Type)
	propId, ok := t.PropertyByName(name)
	if !ok {
		return ids.Null(), &TypeError{Msg: "unknown property " + name + " on type " + t.Name}
	}
	if !v.IsNull() && v.Kind() != t.Property(propId).Kind {
		return ids.Null(), &TypeError{Msg: "property " + name + " on type " + t.Name + " expects kind " + t.Property(propId).Kind.String()}
	}
	old = n.Property(propId)
	n.Props[propId] = v
	return old, nil
}

func (st *Store) PropertyId(typeId ids.TypeId, name string) (ids.PropertyId, bool) {
	t := st.schema.Type(typeId)
	return t.PropertyByName(name)
}

func (st *Store) EdgeId(typeId ids.TypeId, name string) (ids.EdgeId, bool) {
	t := st.schema.Type(typeId)
	return t.EdgeByName(name)
}

// Link appends target to src's edge sequence if not already present,
// returning ok=false if it was a no-op (already linked). The reverse
// edge is the caller's (Graph's) responsibility, so that both sides
// update atomically from one place.
func (st *Store) Link(src *Node, edge ids.EdgeId, target ids.NodeId) (ok bool) {
	if src.HasEdgeTarget(edge, target) {
		return false
	}
	src.Edges[edge] = append(src.Edges[edge], target)
	return true
}

// Unlink removes target from src's edge sequence, preserving the
// remaining order, returning ok=false if it wasn't linked.
func (st *Store) Unlink(src *Node, edge ids.EdgeId, target ids.NodeId) (ok bool) {
	seq := src.Edges[edge]
	for i, t := range seq {
		if t == target {
			src.Edges[edge] = append(seq[:i], seq[i+1:]...)
			return true
		}
	}
	return false
}

// Delete removes the node from the store. Cascading unlinks,
// index/rollup invalidation, and event emission are the Graph's job;
// the store only guarantees the id is gone and unreachable via Get.
func (st *Store) Delete(id ids.NodeId) {
	delete(st.nodes, id)
}

// TypeError is a SchemaError-kind failure at the property write
// boundary (spec §7).
type TypeError struct{ Msg string }

func (e *TypeError) Error() string { return "neograph: " + e.Msg }
