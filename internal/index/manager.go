// SPDX-License-Identifier: MIT

package index

import (
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
	"github.com/Aetherall/neograph-sub003/lib/containers"
)

type treeKey struct {
	Type  ids.TypeId
	Index ids.IndexId
}

// Manager owns every declared Index's B+ tree and keeps them in sync
// with the store via its onX hooks, called by the Graph at the same
// points spec §4.2 names: insert, property update, link, unlink,
// delete. A property-only index holds exactly one entry per node; an
// edge-prefixed (cross-entity) index holds one entry per (node, edge
// target) pair, since the leading field is multi-valued whenever the
// edge is.
type Manager struct {
	schema *schema.Schema
	trees  map[treeKey]*containers.BPTree[CompoundKey, ids.NodeId]
}

func NewManager(s *schema.Schema) *Manager {
	return &Manager{schema: s, trees: make(map[treeKey]*containers.BPTree[CompoundKey, ids.NodeId])}
}

func (m *Manager) tree(t ids.TypeId, idx ids.IndexId) *containers.BPTree[CompoundKey, ids.NodeId] {
	key := treeKey{t, idx}
	tr, ok := m.trees[key]
	if !ok {
		tr = containers.NewBPTree[CompoundKey, ids.NodeId]()
		m.trees[key] = tr
	}
	return tr
}

// Tree exposes one index's tree read-only, for the selector's scans.
func (m *Manager) Tree(t ids.TypeId, idx ids.IndexId) *containers.BPTree[CompoundKey, ids.NodeId] {
	return m.tree(t, idx)
}

// buildFields resolves one index's field list against n's current
// state, except that overrideVal (when hasOverride) substitutes a different
// value for property overrideProp — used to reconstruct the key a node
// had BEFORE a property write, so the old entry can be found and
// removed.
func buildFields(idx schema.Index, n *store.Node, edgeTarget ids.NodeId, overrideProp ids.PropertyId, overrideVal ids.Value, hasOverride bool) []FieldValue {
	fields := make([]FieldValue, len(idx.Fields))
	for i, f := range idx.Fields {
		switch f.Kind {
		case schema.FieldEdge:
			fields[i] = FieldValue{IsEdge: true, Target: edgeTarget, Desc: f.Desc}
		case schema.FieldProperty:
			v := n.Property(f.Property)
			if hasOverride && f.Property == overrideProp {
				v = overrideVal
			}
			fields[i] = FieldValue{Value: v, Desc: f.Desc}
		}
	}
	return fields
}

func (m *Manager) insertEntries(t *schema.Type, idx schema.Index, n *store.Node) {
	tr := m.tree(t.Id, idx.Id)
	if edgeId, ok := idx.LeadingEdge(); ok {
		for _, target := range n.EdgeTargets(edgeId) {
			fields := buildFields(idx, n, target, 0, ids.Value{}, false)
			tr.Insert(EncodeKey(fields, n.Id), n.Id)
		}
		return
	}
	fields := buildFields(idx, n, 0, 0, ids.Value{}, false)
	tr.Insert(EncodeKey(fields, n.Id), n.Id)
}

func (m *Manager) removeEntries(t *schema.Type, idx schema.Index, n *store.Node, overrideProp ids.PropertyId, overrideVal ids.Value, hasOverride bool) {
	tr := m.tree(t.Id, idx.Id)
	if edgeId, ok := idx.LeadingEdge(); ok {
		for _, target := range n.EdgeTargets(edgeId) {
			fields := buildFields(idx, n, target, overrideProp, overrideVal, hasOverride)
			tr.Delete(EncodeKey(fields, n.Id))
		}
		return
	}
	fields := buildFields(idx, n, 0, overrideProp, overrideVal, hasOverride)
	tr.Delete(EncodeKey(fields, n.Id))
}

// OnInsert adds n to every one of its type's indexes. Edge-prefixed
// indexes contribute no entries yet, since a freshly inserted node
// has no edges.
func (m *Manager) OnInsert(n *store.Node) {
	t := m.schema.Type(n.Type)
	for _, idx := range t.Indexes {
		m.insertEntries(t, idx, n)
	}
}

// OnDelete removes every entry n contributed, across every index.
// Callers are expected to have already driven OnUnlink for each of
// n's own edges (and the reverse side's) before this, but removeEntries
// is idempotent against an already-absent key either way.
func (m *Manager) OnDelete(n *store.Node) {
	t := m.schema.Type(n.Type)
	for _, idx := range t.Indexes {
		m.removeEntries(t, idx, n, 0, ids.Value{}, false)
	}
}

// OnUpdateProperty recomputes only the indexes that reference propId,
// using old to locate and remove the stale entry before inserting the
// current one.
func (m *Manager) OnUpdateProperty(n *store.Node, propId ids.PropertyId, old ids.Value) {
	t := m.schema.Type(n.Type)
	for _, idxId := range t.IndexesForProperty(propId) {
		idx := t.Index(idxId)
		m.removeEntries(t, idx, n, propId, old, true)
		m.insertEntries(t, idx, n)
	}
}

// OnLink adds one entry per edge-prefixed index leading on edge, for
// the single new (n, target) pair.
func (m *Manager) OnLink(n *store.Node, edge ids.EdgeId, target ids.NodeId) {
	t := m.schema.Type(n.Type)
	for _, idxId := range t.IndexesForEdge(edge) {
		idx := t.Index(idxId)
		fields := buildFields(idx, n, target, 0, ids.Value{}, false)
		m.tree(t.Id, idxId).Insert(EncodeKey(fields, n.Id), n.Id)
	}
}

// OnUnlink removes the one entry OnLink added for (n, edge, target).
func (m *Manager) OnUnlink(n *store.Node, edge ids.EdgeId, target ids.NodeId) {
	t := m.schema.Type(n.Type)
	for _, idxId := range t.IndexesForEdge(edge) {
		idx := t.Index(idxId)
		fields := buildFields(idx, n, target, 0, ids.Value{}, false)
		m.tree(t.Id, idxId).Delete(EncodeKey(fields, n.Id))
	}
}
