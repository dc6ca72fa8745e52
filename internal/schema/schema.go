// SPDX-License-Identifier: MIT

// Package schema holds the immutable, registered description of a
// graph's types, properties, edges, indexes, and rollups. It is built
// once (before the first insert) from a Definition, either supplied
// directly as a Go value or decoded from JSON text, and is never
// mutated afterward; every other subsystem treats a *Schema as a
// read-only map from interned name to small integer id.
package schema

import (
	"fmt"

	"github.com/Aetherall/neograph-sub003/internal/ids"
)

type IndexFieldKind uint8

const (
	FieldProperty IndexFieldKind = iota
	FieldEdge
)

// IndexField is one component of a compound key: either a property
// (with its sort direction) or, only valid as the first field of a
// cross-entity index, the edge linking the owning node to another
// type's node.
type IndexField struct {
	Kind     IndexFieldKind
	Property ids.PropertyId
	Edge     ids.EdgeId
	Desc     bool
}

type Index struct {
	Id     ids.IndexId
	Fields []IndexField
}

// LeadingEdge reports the edge id if this index is edge-prefixed
// (cross-entity), and whether it is.
func (idx Index) LeadingEdge() (ids.EdgeId, bool) {
	if len(idx.Fields) == 0 || idx.Fields[0].Kind != FieldEdge {
		return 0, false
	}
	return idx.Fields[0].Edge, true
}

type RollupKind uint8

const (
	RollupCount RollupKind = iota
	RollupTraverse
	RollupFirst
	RollupLast
)

func (k RollupKind) String() string {
	switch k {
	case RollupCount:
		return "count"
	case RollupTraverse:
		return "traverse"
	case RollupFirst:
		return "first"
	case RollupLast:
		return "last"
	default:
		return "unknown"
	}
}

// Rollup is a derived per-node field computed at write time. Count
// and Traverse read directly off the node's own edge map in O(1);
// First and Last delegate to the index manager's edge-prefixed scan
// over ChildIndex, using the owning node's id as the scan prefix.
type Rollup struct {
	Id   ids.RollupId
	Name string
	Kind RollupKind

	Edge ids.EdgeId // Count, Traverse, First, Last

	TraverseField ids.PropertyId // Traverse only

	ChildIndex ids.IndexId // First, Last only: index on Edge's target type
}

type Property struct {
	Id   ids.PropertyId
	Name string
	Kind ids.Kind
}

// Edge is one direction of a bidirectional pair. ReverseId names the
// paired Edge on TargetType; following it undoes the traversal.
type Edge struct {
	Id         ids.EdgeId
	Name       string
	TargetType ids.TypeId
	ReverseId  ids.EdgeId
}

type Type struct {
	Id         ids.TypeId
	Name       string
	Properties []Property
	Edges      []Edge
	Indexes    []Index
	Rollups    []Rollup

	propertyByName map[string]ids.PropertyId
	edgeByName     map[string]ids.EdgeId
	rollupByName   map[string]ids.RollupId

	// indexesByProperty/indexesByEdge answer "which indexes does a
	// write to this field touch", used by the index manager's
	// onUpdate hook (spec §4.2) so only affected indexes are
	// recomputed.
	indexesByProperty map[ids.PropertyId][]ids.IndexId
	indexesByEdge     map[ids.EdgeId][]ids.IndexId

	// rollupsByEdge answers "which of my own rollups read this
	// edge", used on link/unlink to recompute Count/Traverse/First/
	// Last rollups that observe it.
	rollupsByEdge map[ids.EdgeId][]ids.RollupId

	// rollupsByTraverseField answers, for a property declared on
	// THIS type, which other types' Traverse rollups read it across
	// an edge. It is schema-level metadata only: whether any node
	// actually depends on a given target node's property goes
	// through the target node's reverse edge at runtime (see the
	// rollup cache), not this map. This map just bounds "which rollup definitions could ever
	// be affected" so the cache doesn't have to re-derive it from
	// the schema on every write.
	rollupsByTraverseField map[ids.PropertyId][]RollupRef
}

// RollupRef names one rollup definition by its owning type, since a
// Traverse rollup on type A that reads a field on type B is recorded
// under B's rollupsByTraverseField — a bare RollupId would be
// ambiguous without also saying which type's Rollups slice it indexes.
type RollupRef struct {
	Type   ids.TypeId
	Rollup ids.RollupId
}

func (t *Type) PropertyByName(name string) (ids.PropertyId, bool) {
	id, ok := t.propertyByName[name]
	return id, ok
}

func (t *Type) EdgeByName(name string) (ids.EdgeId, bool) {
	id, ok := t.edgeByName[name]
	return id, ok
}

func (t *Type) RollupByName(name string) (ids.RollupId, bool) {
	id, ok := t.rollupByName[name]
	return id, ok
}

func (t *Type) Property(id ids.PropertyId) Property { return t.Properties[id] }
func (t *Type) Edge(id ids.EdgeId) Edge             { return t.Edges[id] }
func (t *Type) Index(id ids.IndexId) Index          { return t.Indexes[id] }
func (t *Type) Rollup(id ids.RollupId) Rollup       { return t.Rollups[id] }

func (t *Type) IndexesForProperty(id ids.PropertyId) []ids.IndexId {
	return t.indexesByProperty[id]
}

func (t *Type) IndexesForEdge(id ids.EdgeId) []ids.IndexId {
	return t.indexesByEdge[id]
}

func (t *Type) RollupsForEdge(id ids.EdgeId) []ids.RollupId {
	return t.rollupsByEdge[id]
}

func (t *Type) RollupsForTraverseField(id ids.PropertyId) []RollupRef {
	return t.rollupsByTraverseField[id]
}

// Schema is the immutable, registered description of every type.
// Construct one with Compile (from a Definition) rather than directly.
type Schema struct {
	types      []*Type
	typeByName map[string]ids.TypeId
}

func (s *Schema) TypeByName(name string) (ids.TypeId, bool) {
	id, ok := s.typeByName[name]
	return id, ok
}

func (s *Schema) Type(id ids.TypeId) *Type {
	if !id.Valid() || int(id) >= len(s.types) {
		return nil
	}
	return s.types[id]
}

func (s *Schema) Types() []*Type { return s.types }

// Error is a SchemaError per spec §7: unknown type/property/edge,
// duplicate names, type mismatch, missing reverse edge.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "neograph: schema error: " + e.Msg }

func errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
