// SPDX-License-Identifier: MIT

package index

import (
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/queryfilter"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/lib/containers"
)

// Scan executes plan against req over t's chosen index, yielding
// matching node ids in the index's own order: the leading equality
// prefix and optional range bound are pushed into the tree scan
// itself, so the caller (the query engine) only needs to apply
// whatever filters plan.EqualityPrefixCount/RangeFieldIndex did not
// consume, and needs no further sort when plan.SortSatisfied.
func (m *Manager) Scan(t *schema.Type, plan Plan, req Request) *containers.Iterator[CompoundKey, ids.NodeId] {
	idx := t.Index(plan.Index)
	tr := m.tree(t.Id, plan.Index)

	filterByProp := make(map[ids.PropertyId]ids.Value, len(req.Filters))
	for _, f := range req.Filters {
		filterByProp[f.Property] = f.Value
	}

	prefixFields := make([]FieldValue, 0, len(idx.Fields))
	pos := 0
	if edgeId, isEdge := idx.LeadingEdge(); isEdge {
		target := req.EdgeEquals[edgeId]
		prefixFields = append(prefixFields, FieldValue{IsEdge: true, Target: target, Desc: idx.Fields[0].Desc})
		pos = 1
	}
	for i := 0; i < plan.EqualityPrefixCount; i++ {
		f := idx.Fields[pos+i]
		prefixFields = append(prefixFields, FieldValue{Value: filterByProp[f.Property], Desc: f.Desc})
	}
	prefix := EncodePrefix(prefixFields)

	if plan.RangeFieldIndex < 0 {
		return tr.PrefixScan(prefix, func(k CompoundKey) bool { return k.HasPrefix(prefix) })
	}

	rf := idx.Fields[plan.RangeFieldIndex]
	lo, hi := rangeBounds(string(prefix), rf.Desc, plan.RangeFilter)
	return tr.Range(CompoundKey(lo), CompoundKey(hi))
}

// unbounded is a sentinel byte guaranteed to sort after any real
// field's leading tag byte (the highest tag, KindBool's 4), so
// prefix+unbounded is an exclusive upper bound covering every key
// sharing that prefix.
const unbounded = "\xff"

// rangeBounds turns one range filter (lt/le/gt/ge) on the field
// immediately following the equality prefix into a [lo, hi) byte
// range over the tree, still scoped to the equality prefix. desc
// reverses which side of the filter is the lower vs. upper bound,
// since a descending field's bytes are the value's encoding negated.
func rangeBounds(prefix string, desc bool, filt queryfilter.Filter) (lo, hi string) {
	var buf []byte
	buf = encodeValue(buf, filt.Value)
	if desc {
		negate(buf, 0)
	}
	field := string(buf)

	op := filt.Op
	if desc {
		switch op {
		case queryfilter.Lt:
			op = queryfilter.Gt
		case queryfilter.Le:
			op = queryfilter.Ge
		case queryfilter.Gt:
			op = queryfilter.Lt
		case queryfilter.Ge:
			op = queryfilter.Le
		}
	}

	switch op {
	case queryfilter.Lt:
		return prefix, prefix + field
	case queryfilter.Le:
		return prefix, prefix + field + unbounded
	case queryfilter.Gt:
		return prefix + field + unbounded, prefix + unbounded
	case queryfilter.Ge:
		return prefix + field, prefix + unbounded
	default:
		return prefix, prefix + unbounded
	}
}
