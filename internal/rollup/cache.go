// SPDX-License-Identifier: MIT

// Package rollup computes and incrementally maintains each node's
// derived fields (count/traverse/first/last, per spec §4.3). A
// rollup's dependency on "whoever points at me" is answered for free
// by the schema's reverse-edge pairing (every edge declares one): the
// set of nodes whose Traverse rollup reads a given target's property
// is exactly that target's EdgeTargets on the reverse edge, so no
// separate inverted dependency index needs to be kept in sync
// alongside the store.
package rollup

import (
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
)

// Cache holds no state of its own; every rollup value lives on its
// owning Node. It exists to bundle the schema + index manager that
// computing a rollup needs, and to give the maintenance hooks a home.
type Cache struct {
	schema *schema.Schema
	store  *store.Store
	index  *index.Manager
}

func NewCache(s *schema.Schema, st *store.Store, mgr *index.Manager) *Cache {
	return &Cache{schema: s, store: st, index: mgr}
}

func (c *Cache) compute(n *store.Node, r schema.Rollup) ids.Value {
	switch r.Kind {
	case schema.RollupCount:
		return ids.IntValue(int64(len(n.EdgeTargets(r.Edge))))
	case schema.RollupTraverse:
		return c.computeTraverse(n, r)
	case schema.RollupFirst:
		return c.computeFirstLast(n, r, true)
	case schema.RollupLast:
		return c.computeFirstLast(n, r, false)
	default:
		return ids.Null()
	}
}

func (c *Cache) computeTraverse(n *store.Node, r schema.Rollup) ids.Value {
	targets := n.EdgeTargets(r.Edge)
	if len(targets) == 0 {
		return ids.Null()
	}
	target, ok := c.store.Get(targets[0])
	if !ok {
		return ids.Null()
	}
	return target.Property(r.TraverseField)
}

// computeFirstLast scans r's child index restricted to n as the
// leading edge prefix, taking the minimum (first) or maximum (last)
// entry in the child index's own order. The rollup's value is the
// matching child's node id, encoded as an int — letting a viewer
// jump straight to "the first reply" without a second query.
func (c *Cache) computeFirstLast(n *store.Node, r schema.Rollup, first bool) ids.Value {
	targetTypeId := c.schema.Type(n.Type).Edge(r.Edge).TargetType
	targetType := c.schema.Type(targetTypeId)
	idx := targetType.Index(r.ChildIndex)
	_, isEdgePrefixed := idx.LeadingEdge()
	if !isEdgePrefixed {
		return ids.Null()
	}

	tr := c.index.Tree(targetTypeId, r.ChildIndex)
	prefix := index.EncodePrefix([]index.FieldValue{{IsEdge: true, Target: n.Id, Desc: idx.Fields[0].Desc}})
	it := tr.PrefixScan(prefix, func(k index.CompoundKey) bool { return k.HasPrefix(prefix) })

	var result ids.NodeId
	found := false
	for {
		_, v, ok := it.Next()
		if !ok {
			break
		}
		result = v
		found = true
		if first {
			break
		}
	}
	if !found {
		return ids.Null()
	}
	return ids.IntValue(int64(result))
}

// OnInsert computes every rollup a freshly-inserted node declares.
// Count starts at zero, Traverse/First/Last at null, since the node
// has no edges yet.
func (c *Cache) OnInsert(n *store.Node) {
	t := c.schema.Type(n.Type)
	for _, r := range t.Rollups {
		n.SetRollup(r.Id, c.compute(n, r))
	}
}

// OnLinkOrUnlink recomputes every rollup on src that observes edge,
// whether it counts, traverses, or ranks over it.
func (c *Cache) OnLinkOrUnlink(src *store.Node, edge ids.EdgeId) {
	t := c.schema.Type(src.Type)
	for _, rId := range t.RollupsForEdge(edge) {
		r := t.Rollup(rId)
		src.SetRollup(rId, c.compute(src, r))
	}
}

// OnUpdateProperty recomputes every other type's Traverse rollup that
// reads propId across an edge into target, using target's reverse
// edge to find the dependent source nodes without a separate index.
func (c *Cache) OnUpdateProperty(target *store.Node, propId ids.PropertyId) {
	t := c.schema.Type(target.Type)
	for _, ref := range t.RollupsForTraverseField(propId) {
		sourceType := c.schema.Type(ref.Type)
		r := sourceType.Rollup(ref.Rollup)
		reverseEdge := sourceType.Edge(r.Edge).ReverseId
		for _, sourceId := range target.EdgeTargets(reverseEdge) {
			source, ok := c.store.Get(sourceId)
			if !ok {
				continue
			}
			source.SetRollup(ref.Rollup, c.computeTraverse(source, r))
		}
	}
}
