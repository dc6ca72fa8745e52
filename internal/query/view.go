// SPDX-License-Identifier: MIT

// Package query compiles a spec §4.4 query tree against a schema and
// materializes it into a live, viewport-windowed, expand/collapse
// aware View whose every mutation is announced as an ordered sequence
// of enter/leave/change/move events (spec §4.3, §5, §8).
package query

import (
	"github.com/Aetherall/neograph-sub003/internal/change"
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/queryfilter"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
	"github.com/Aetherall/neograph-sub003/lib/containers"
)

type EventKind uint8

const (
	Enter EventKind = iota
	Leave
	Change
	Move
)

func (k EventKind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Leave:
		return "leave"
	case Change:
		return "change"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

// PathStep names one edge hop from a view's root down to an item.
type PathStep struct {
	Edge ids.EdgeId
	Node ids.NodeId
}

// Item is one materialized row: a node positioned at a specific spot
// in the expanded tree, carrying enough to render it and to act on it
// (Expand/Collapse) without a second lookup.
type Item struct {
	Id             ids.NodeId
	Type           ids.TypeId
	Depth          int
	Path           []PathStep
	HasParent      bool
	ParentId       ids.NodeId
	EdgeFromParent ids.EdgeId
	HasChildren    bool
	Expanded       bool
	SortKey        index.CompoundKey

	level *Level
}

// QueryEvent is one entry of a view refresh's ordered event batch.
type QueryEvent struct {
	Kind     EventKind
	Item     Item
	OldIndex int // position before the refresh (Leave, Move, Change); -1 for Enter
	NewIndex int // position after the refresh (Enter, Move, Change); -1 for Leave
}

// View is a live, materialized query result. It re-derives its full
// item list on every relevant store mutation (a deliberate
// recompute-and-diff strategy rather than an incrementally patched
// structure — see DESIGN.md) and emits the ordered event batch that
// transitions the previous materialization to the current one.
type View struct {
	schema  *schema.Schema
	store   *store.Store
	idx     *index.Manager
	tracker *change.Tracker

	compiled *Compiled

	expansion map[ids.NodeId]containers.Set[string]

	items      []Item
	indexOf    map[ids.NodeId]int
	lastEvents []QueryEvent

	subTypes []ids.TypeId
	subIds   []uint64

	limit  int
	offset int

	// windowed is true when the last materialize() bounded the root
	// scan to [offset, offset+limit) via SkipToPosition rather than
	// walking every root match (spec §4.4 Materialization's "pure
	// index scan with no post-filters" case). When true, items already
	// is the visible window and total holds the index's own entry
	// count instead of len(items).
	windowed bool
	total    int

	handlers      map[EventKind][]handlerEntry
	nextHandlerId uint64
}

type handlerEntry struct {
	id uint64
	fn func(QueryEvent)
}

func NewView(s *schema.Schema, st *store.Store, idx *index.Manager, tracker *change.Tracker, compiled *Compiled) *View {
	v := &View{
		schema:    s,
		store:     st,
		idx:       idx,
		tracker:   tracker,
		compiled:  compiled,
		expansion: make(map[ids.NodeId]containers.Set[string]),
		indexOf:   make(map[ids.NodeId]int),
		handlers:  make(map[EventKind][]handlerEntry),
		limit:     -1,
	}
	seen := containers.NewSet[ids.TypeId]()
	collectTypes(compiled.Root, seen)
	// Sorted rather than map iteration order, so two views over the
	// same compiled tree subscribe to the tracker in the same order.
	v.subTypes = containers.SortedSlice(seen, func(a, b ids.TypeId) bool { return a < b })
	for _, t := range v.subTypes {
		typeId := t
		id := tracker.Subscribe(typeId, func(ev change.Event) { v.refreshFor(&ev) })
		v.subIds = append(v.subIds, id)
	}
	v.items = v.materialize()
	v.reindex()
	return v
}

func collectTypes(l *Level, out containers.Set[ids.TypeId]) {
	if out.Has(l.TypeId) {
		return
	}
	out.Insert(l.TypeId)
	for _, c := range l.Children {
		if c == l {
			continue // self-loop: already visited
		}
		collectTypes(c, out)
	}
}

// Close unsubscribes the view from the change tracker. A view that is
// no longer referenced but never closed keeps receiving (and acting
// on) mutation events indefinitely.
func (v *View) Close() {
	for i, t := range v.subTypes {
		v.tracker.Unsubscribe(t, v.subIds[i])
	}
}

// On registers fn to be called for every event of kind emitted by a
// future Refresh, in addition to the events Refresh itself returns.
// Returns a handle for Off.
func (v *View) On(kind EventKind, fn func(QueryEvent)) uint64 {
	v.nextHandlerId++
	id := v.nextHandlerId
	v.handlers[kind] = append(v.handlers[kind], handlerEntry{id: id, fn: fn})
	return id
}

// Off removes the handler registered under id for kind.
func (v *View) Off(kind EventKind, id uint64) {
	entries := v.handlers[kind]
	for i, e := range entries {
		if e.id == id {
			v.handlers[kind] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// OffAll removes every handler registered for kind.
func (v *View) OffAll(kind EventKind) {
	delete(v.handlers, kind)
}

func (v *View) dispatch(events []QueryEvent) {
	for _, e := range events {
		for _, entry := range v.handlers[e.Kind] {
			entry.fn(e)
		}
	}
}

// Items returns the current viewport window (spec §4.3): at most
// limit items (or all of them if no limit was set), starting at
// offset, in materialized order.
func (v *View) Items() []Item {
	if v.windowed {
		return v.items
	}
	if v.limit < 0 {
		if v.offset >= len(v.items) {
			return nil
		}
		return v.items[v.offset:]
	}
	lo := v.offset
	if lo > len(v.items) {
		lo = len(v.items)
	}
	hi := lo + v.limit
	if hi > len(v.items) {
		hi = len(v.items)
	}
	return v.items[lo:hi]
}

// Total reports the logical item count (spec §4.3 "total() for the
// logical count"): the windowed scan's own index entry count when
// materialize() used the bounded path (where every root match is
// exactly one item), or len(items) otherwise.
func (v *View) Total() int {
	if v.windowed {
		return v.total
	}
	return len(v.items)
}

func (v *View) Offset() int { return v.offset }

// pureWindowEligible reports whether the root level can use the
// bounded SkipToPosition scan (spec §4.4): no single-id root, a
// viewport limit is set, and the root declares no filters at all (so
// every entry in the index's own order is a match and global tree
// position corresponds exactly to scan position). The root must also
// produce exactly one row per match: it is not virtual, none of its
// child levels is virtual, and no node is expanded.
func (v *View) pureWindowEligible() bool {
	root := v.compiled.Root
	if v.limit < 0 || v.compiled.HasId || len(root.Filters) != 0 || root.Virtual {
		return false
	}
	for _, c := range root.Children {
		if c.Virtual {
			return false
		}
	}
	for _, set := range v.expansion {
		if set.Len() > 0 {
			return false
		}
	}
	return true
}

// resyncWindow recomputes items (silently, without diffing or
// dispatching) after an offset/limit change, so a later
// mutation-triggered refresh diffs against the new window rather than
// a stale one — per spec §4.4 "does not re-emit enter/leave for items
// that merely crossed the viewport boundary". It is a no-op unless the
// bounded window is (or was) in play, since the unbounded list does
// not depend on offset/limit.
func (v *View) resyncWindow() {
	if !v.windowed && !v.pureWindowEligible() {
		return
	}
	v.items = v.materialize()
	v.reindex()
}

func (v *View) SetLimit(n int) {
	v.limit = n
	v.resyncWindow()
}

func (v *View) ScrollTo(offset int) {
	if offset < 0 {
		offset = 0
	}
	v.offset = offset
	v.resyncWindow()
}

func (v *View) ScrollBy(delta int) { v.ScrollTo(v.offset + delta) }

// IsExpanded reports whether node is expanded under edgeName (the
// name the edge was declared under in the query tree).
func (v *View) IsExpanded(node ids.NodeId, edgeName string) bool {
	set, ok := v.expansion[node]
	if !ok {
		return false
	}
	return set.Has(edgeName)
}

// Expand marks node's edgeName child level as expanded and
// re-materializes, returning the resulting event batch. edgeName must
// be declared at node's position in the compiled query tree, or
// ExpansionError is returned.
func (v *View) Expand(node ids.NodeId, edgeName string) ([]QueryEvent, error) {
	return v.setExpanded(node, edgeName, true)
}

func (v *View) Collapse(node ids.NodeId, edgeName string) ([]QueryEvent, error) {
	return v.setExpanded(node, edgeName, false)
}

// Toggle flips node's edgeName expansion state.
func (v *View) Toggle(node ids.NodeId, edgeName string) ([]QueryEvent, error) {
	return v.setExpanded(node, edgeName, !v.IsExpanded(node, edgeName))
}

// maxExpandAllIterations bounds ExpandAll's fixpoint loop: a query
// over data containing an actual cycle along a recursive edge (not
// merely a recursive *selection*, which only unrolls as deep as the
// data goes) would otherwise expand forever.
const maxExpandAllIterations = 10000

// ExpandAll expands every non-virtual edge reachable from every
// currently materialized item, repeating until no new expansion is
// discovered (so expanding a node's children can itself reveal
// further expandable grandchildren) or maxDepth is reached. maxDepth
// <= 0 means unlimited.
func (v *View) ExpandAll(maxDepth int) []QueryEvent {
	for i := 0; i < maxExpandAllIterations; i++ {
		changed := false
		next := v.materialize()
		for _, it := range next {
			if maxDepth > 0 && it.Depth >= maxDepth {
				continue
			}
			for _, c := range it.level.Children {
				if c.Virtual {
					continue
				}
				name := childName(it.level, c)
				set, ok := v.expansion[it.Id]
				if !ok {
					set = containers.NewSet[string]()
					v.expansion[it.Id] = set
				}
				if !set.Has(name) {
					set.Insert(name)
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return v.refreshFor(nil)
}

// CollapseAll resets every explicit expansion, leaving only virtual
// levels (which are always expanded regardless of this state).
func (v *View) CollapseAll() []QueryEvent {
	v.expansion = make(map[ids.NodeId]containers.Set[string])
	return v.refreshFor(nil)
}

func (v *View) setExpanded(node ids.NodeId, edgeName string, want bool) ([]QueryEvent, error) {
	itemIdx, ok := v.indexOf[node]
	if !ok {
		return nil, &ExpansionError{Msg: "node is not present in this view"}
	}
	lvl := v.items[itemIdx].level
	var found *Level
	for _, c := range lvl.Children {
		name := c.Name
		if c == lvl {
			name = lvl.Name
		}
		if name == edgeName {
			found = c
			break
		}
	}
	if found == nil {
		return nil, &ExpansionError{Msg: "no such edge " + edgeName + " at this node's position"}
	}
	if found.Virtual {
		return nil, &ExpansionError{Msg: "edge " + edgeName + " is virtual and always expanded"}
	}

	set, ok := v.expansion[node]
	if !ok {
		set = containers.NewSet[string]()
		v.expansion[node] = set
	}
	if want {
		set.Insert(edgeName)
	} else {
		set.Delete(edgeName)
	}
	events := v.refreshFor(nil)
	return events, nil
}

// Refresh recomputes the materialized item list against the current
// store state and returns the resulting event batch, as if an
// unspecified mutation had occurred. Views wired to a Graph normally
// never need to call this directly; it is exposed for callers driving
// a store without a Graph/change.Tracker in front of it.
func (v *View) Refresh() []QueryEvent { return v.refreshFor(nil) }

// refreshFor recomputes and diffs, using ev (if non-nil) to decide
// whether a present-in-both item's Change should accompany its Move:
// per spec's worked scenario 2, updating a sort field always emits
// both, even when the item's position does not actually change.
func (v *View) refreshFor(ev *change.Event) []QueryEvent {
	old := v.items
	oldIndexOf := v.indexOf

	next := v.materialize()

	events := diff(old, oldIndexOf, next, ev)

	v.items = next
	v.reindex()
	v.lastEvents = events

	v.dispatch(events)
	return events
}

func (v *View) reindex() {
	v.indexOf = make(map[ids.NodeId]int, len(v.items))
	for i, it := range v.items {
		v.indexOf[it.Id] = i
	}
}

// diff produces Leave events (deepest-first, for nodes gone from
// next), then Enter events (in next's DFS order, so a parent always
// enters before its children), then Move/Change for nodes present in
// both.
func diff(old []Item, oldIndexOf map[ids.NodeId]int, next []Item, ev *change.Event) []QueryEvent {
	newIndexOf := make(map[ids.NodeId]int, len(next))
	for i, it := range next {
		newIndexOf[it.Id] = i
	}

	var leaves []QueryEvent
	for i, it := range old {
		if _, ok := newIndexOf[it.Id]; !ok {
			leaves = append(leaves, QueryEvent{Kind: Leave, Item: it, OldIndex: i, NewIndex: -1})
		}
	}
	sortLeavesDeepestFirst(leaves)

	var events []QueryEvent
	events = append(events, leaves...)

	for i, it := range next {
		if _, ok := oldIndexOf[it.Id]; !ok {
			events = append(events, QueryEvent{Kind: Enter, Item: it, OldIndex: -1, NewIndex: i})
		}
	}

	// Rank each item present in both lists among the other survivors, so
	// an index shift caused only by items entering or leaving around it
	// is not reported as a Move.
	oldRank := make(map[ids.NodeId]int, len(old))
	rank := 0
	for _, it := range old {
		if _, ok := newIndexOf[it.Id]; ok {
			oldRank[it.Id] = rank
			rank++
		}
	}
	newRank := 0

	for newI, it := range next {
		oldI, ok := oldIndexOf[it.Id]
		if !ok {
			continue
		}
		oldItem := old[oldI]
		survivorRank := newRank
		newRank++

		isTrigger := ev != nil && ev.Node == it.Id
		sortFieldTouched := isTrigger && ev.Kind == change.PropertyUpdate && isSortField(it.level, ev.Property)

		posChanged := oldRank[it.Id] != survivorRank || oldItem.Depth != it.Depth
		contentChanged := oldItem.HasChildren != it.HasChildren || oldItem.Expanded != it.Expanded || oldItem.SortKey != it.SortKey

		move := posChanged || sortFieldTouched
		changed := isTrigger || contentChanged

		if move {
			events = append(events, QueryEvent{Kind: Move, Item: it, OldIndex: oldI, NewIndex: newI})
		}
		if changed {
			events = append(events, QueryEvent{Kind: Change, Item: it, OldIndex: oldI, NewIndex: newI})
		}
	}
	return events
}

func isSortField(level *Level, prop ids.PropertyId) bool {
	for _, s := range level.Sorts {
		if s.Property == prop {
			return true
		}
	}
	return false
}

func sortLeavesDeepestFirst(events []QueryEvent) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j-1].Item.Depth < events[j].Item.Depth; j-- {
			events[j-1], events[j] = events[j], events[j-1]
		}
	}
}

// materialize performs a fresh DFS walk of the compiled query tree
// over the current store state, respecting expansion state (virtual
// levels are always traversed regardless of it), and returns the
// flattened item list in display order. When pureWindowEligible holds
// (a pure index scan with no declared filters, a viewport limit, and
// one row per root match), the root scan itself is bounded to
// [offset, offset+limit) via the index's SkipToPosition (spec §4.4
// Materialization) instead of walking every root match only to slice
// the result afterward. See Total()/Items() for how windowed results
// are reported.
func (v *View) materialize() []Item {
	var out []Item
	v.windowed = false

	if v.compiled.HasId {
		n, ok := v.store.Get(v.compiled.Id)
		if !ok || n.Type != v.compiled.Root.TypeId || !matchesFilters(n, v.compiled.Root.Filters) {
			return out
		}
		v.walk(n, v.compiled.Root, 0, nil, false, 0, 0, &out)
		return out
	}

	root := v.compiled.Root
	t := v.schema.Type(root.TypeId)

	if v.pureWindowEligible() {
		tr := v.idx.Tree(t.Id, root.Plan.Index)
		it := tr.SkipToPosition(uint64(v.offset))
		for produced := 0; produced < v.limit; {
			_, nodeId, ok := it.Next()
			if !ok {
				break
			}
			n, ok := v.store.Get(nodeId)
			if !ok {
				continue
			}
			v.walk(n, root, 0, nil, false, 0, 0, &out)
			produced++
		}
		v.windowed = true
		v.total = int(tr.TotalCount())
		return out
	}

	req := index.Request{Type: root.TypeId, Filters: root.Filters, Sort: root.Sorts}
	it := v.idx.Scan(t, root.Plan, req)
	for {
		_, nodeId, ok := it.Next()
		if !ok {
			break
		}
		n, ok := v.store.Get(nodeId)
		if !ok || !matchesFilters(n, root.Residual) {
			continue
		}
		v.walk(n, root, 0, nil, false, 0, 0, &out)
	}
	return out
}

func matchesFilters(n *store.Node, filters []queryfilter.Filter) bool {
	for _, f := range filters {
		if !f.Match(n.Property(f.Property)) {
			return false
		}
	}
	return true
}

// childEdge returns the edge id to follow from a node currently at
// level to reach child c: c's own declared parent edge, except for a
// recursive self-loop (c == level), where it is the same edge that
// reached level in the first place.
func childEdge(level, c *Level) ids.EdgeId {
	if c == level {
		return level.EdgeFromParent
	}
	return c.EdgeFromParent
}

func childName(level, c *Level) string {
	if c == level {
		return level.Name
	}
	return c.Name
}

func (v *View) walk(n *store.Node, level *Level, depth int, path []PathStep, hasParent bool, parentId ids.NodeId, edgeFromParent ids.EdgeId, out *[]Item) {
	// A virtual level is transparent: its node is never emitted and its
	// children appear in place of it, at the same depth (spec §4.4,
	// GLOSSARY "Virtual edge/level").
	if !level.Virtual {
		item := Item{
			Id:             n.Id,
			Type:           n.Type,
			Depth:          depth,
			Path:           append([]PathStep(nil), path...),
			HasParent:      hasParent,
			ParentId:       parentId,
			EdgeFromParent: edgeFromParent,
			HasChildren:    v.hasAnyChildren(n, level),
			SortKey:        sortKey(n, level),
			level:          level,
		}

		expandedAny := false
		for _, c := range level.Children {
			if v.childExpanded(n.Id, level, c) {
				expandedAny = true
				break
			}
		}
		item.Expanded = expandedAny
		*out = append(*out, item)
	}

	for _, c := range level.Children {
		if !v.childExpanded(n.Id, level, c) {
			continue
		}
		edge := childEdge(level, c)
		targets := n.EdgeTargets(edge)
		if len(targets) == 0 {
			continue
		}
		childPath := append(append([]PathStep(nil), path...), PathStep{Edge: edge, Node: n.Id})
		childDepth := depth
		if !c.Virtual {
			childDepth = depth + 1
		}
		for _, tid := range targets {
			cn, ok := v.store.Get(tid)
			if !ok || !matchesFilters(cn, c.Residual) {
				continue
			}
			v.walk(cn, c, childDepth, childPath, true, n.Id, edge, out)
		}
	}
}

func (v *View) childExpanded(node ids.NodeId, level, c *Level) bool {
	if c.Virtual {
		return true
	}
	set := v.expansion[node]
	if set == nil {
		return false
	}
	return set.Has(childName(level, c))
}

// sortKey encodes just the level's requested sort fields (not a full
// index key), so a view consumer can tell two items' relative order
// without re-deriving it from raw property values, and so diff can
// detect a sort-relevant property change even absent a trigger event.
func sortKey(n *store.Node, level *Level) index.CompoundKey {
	if len(level.Sorts) == 0 {
		return ""
	}
	fields := make([]index.FieldValue, len(level.Sorts))
	for i, s := range level.Sorts {
		fields[i] = index.FieldValue{Value: n.Property(s.Property), Desc: s.Desc}
	}
	return index.EncodePrefix(fields)
}

func (v *View) hasAnyChildren(n *store.Node, level *Level) bool {
	for _, c := range level.Children {
		edge := childEdge(level, c)
		if len(n.EdgeTargets(edge)) > 0 {
			return true
		}
	}
	return false
}
