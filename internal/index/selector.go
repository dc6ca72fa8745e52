// SPDX-License-Identifier: MIT

package index

import (
	"strconv"
	"strings"

	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/queryfilter"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/lib/containers"
)

// SortField is one requested ORDER BY component.
type SortField struct {
	Property ids.PropertyId
	Desc     bool
}

// Request describes what a query needs scanned: an optional equality
// binding on a leading cross-entity edge (e.g. "stacks of this
// thread"), a set of property filters, and a requested sort order.
type Request struct {
	Type       ids.TypeId
	EdgeEquals map[ids.EdgeId]ids.NodeId
	Filters    []queryfilter.Filter
	Sort       []SortField
}

// Plan names the chosen index and how much of the request it
// satisfies directly via the tree's own order, so the query engine
// knows what (if anything) still needs residual filtering or an
// in-memory sort.
type Plan struct {
	Index               ids.IndexId
	ConsumesEdgeEqual   bool
	EqualityPrefixCount int // leading property filters satisfied as exact-match key prefix
	RangeFieldIndex     int // index.Fields position of the range-bounding filter, or -1
	RangeFilter         queryfilter.Filter
	SortSatisfied       bool
	// ConsumedProperties lists the properties the scan itself already
	// filters on (equality prefix plus the one range field), so a
	// caller needing to know what's left over for residual per-row
	// filtering can subtract these from its original filter set.
	ConsumedProperties []ids.PropertyId
	Score              int
}

// Selector picks the cheapest applicable index for a Request,
// memoizing the decision per (type, filtered properties, sort shape)
// since the same query shape recurs across every viewport refresh of
// a live view.
type Selector struct {
	schema *schema.Schema
	cache  *containers.LRUCache[string, Plan]
}

func NewSelector(s *schema.Schema) *Selector {
	return &Selector{schema: s, cache: containers.NewLRUCache[string, Plan](256)}
}

// Select returns the best Plan for req and whether any index applies
// at all; ok=false means no declared index can serve req, and the
// query compiler rejects such a level.
func (sel *Selector) Select(req Request) (Plan, bool) {
	key := canonicalKey(req)
	if p, ok := sel.cache.Get(key); ok {
		return p, p.Index >= 0
	}

	t := sel.schema.Type(req.Type)
	best := Plan{Index: -1, RangeFieldIndex: -1}
	found := false
	for _, idx := range t.Indexes {
		plan, ok := scoreIndex(idx, req)
		if !ok {
			continue
		}
		switch {
		case !found || plan.Score > best.Score:
			best = plan
			found = true
		case plan.Score == best.Score && len(plan.Residual(req.Filters)) < len(best.Residual(req.Filters)):
			// Spec §4.2: on ties, prefer the shortest residual
			// (post-filter) set.
			best = plan
		}
	}
	if !found {
		best = Plan{Index: -1, RangeFieldIndex: -1}
	}
	sel.cache.Add(key, best)
	return best, found
}

func scoreIndex(idx schema.Index, req Request) (Plan, bool) {
	pos := 0
	consumedEdge := false

	if edgeId, isEdge := idx.LeadingEdge(); isEdge {
		if _, has := req.EdgeEquals[edgeId]; !has {
			return Plan{}, false
		}
		consumedEdge = true
		pos = 1
	}

	filterByProp := make(map[ids.PropertyId]queryfilter.Filter, len(req.Filters))
	for _, f := range req.Filters {
		filterByProp[f.Property] = f
	}

	eqCount := 0
	rangeFieldIdx := -1
	var rangeFilter queryfilter.Filter
	var consumedProps []ids.PropertyId
	for ; pos < len(idx.Fields); pos++ {
		f := idx.Fields[pos]
		if f.Kind != schema.FieldProperty {
			break
		}
		filt, has := filterByProp[f.Property]
		if !has {
			break
		}
		if filt.Op == queryfilter.Eq {
			eqCount++
			consumedProps = append(consumedProps, f.Property)
			continue
		}
		if filt.Op.IsRange() {
			rangeFieldIdx = pos
			rangeFilter = filt
			consumedProps = append(consumedProps, f.Property)
			pos++
		}
		break
	}

	sortSatisfied := matchesSort(idx, pos, req.Sort)

	score := eqCount*100
	if consumedEdge {
		score += 200
	}
	if rangeFieldIdx >= 0 {
		score += 50
	}
	if sortSatisfied {
		score += 500
	}

	return Plan{
		Index:               idx.Id,
		ConsumesEdgeEqual:   consumedEdge,
		EqualityPrefixCount: eqCount,
		RangeFieldIndex:     rangeFieldIdx,
		RangeFilter:         rangeFilter,
		SortSatisfied:       sortSatisfied,
		ConsumedProperties:  consumedProps,
		Score:               score,
	}, true
}

// Residual returns the subset of filters this plan's scan does not
// already apply, which the caller must still check per row.
func (p Plan) Residual(filters []queryfilter.Filter) []queryfilter.Filter {
	if len(p.ConsumedProperties) == 0 {
		return filters
	}
	var out []queryfilter.Filter
	for _, f := range filters {
		consumed := false
		for _, cp := range p.ConsumedProperties {
			if cp == f.Property {
				consumed = true
				break
			}
		}
		if !consumed {
			out = append(out, f)
		}
	}
	return out
}

func matchesSort(idx schema.Index, from int, sort []SortField) bool {
	if len(sort) == 0 {
		return true
	}
	if from+len(sort) > len(idx.Fields) {
		return false
	}
	for i, s := range sort {
		f := idx.Fields[from+i]
		if f.Kind != schema.FieldProperty || f.Property != s.Property || f.Desc != s.Desc {
			return false
		}
	}
	return true
}

func canonicalKey(req Request) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(req.Type)))
	edgeIds := make([]int, 0, len(req.EdgeEquals))
	for e := range req.EdgeEquals {
		edgeIds = append(edgeIds, int(e))
	}
	sortInts(edgeIds)
	for _, e := range edgeIds {
		b.WriteString("|eq-edge:")
		b.WriteString(strconv.Itoa(e))
		b.WriteString("=")
		b.WriteString(strconv.FormatUint(uint64(req.EdgeEquals[ids.EdgeId(e)]), 10))
	}
	for _, f := range req.Filters {
		b.WriteString("|f:")
		b.WriteString(strconv.Itoa(int(f.Property)))
		b.WriteString(":")
		b.WriteString(f.Op.String())
		b.WriteString(":")
		b.WriteString(f.Value.String())
	}
	for _, s := range req.Sort {
		b.WriteString("|s:")
		b.WriteString(strconv.Itoa(int(s.Property)))
		if s.Desc {
			b.WriteString(":desc")
		}
	}
	return b.String()
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
