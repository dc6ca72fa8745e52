// SPDX-License-Identifier: MIT

package neograph

import (
	"github.com/Aetherall/neograph-sub003/internal/ids"
	iq "github.com/Aetherall/neograph-sub003/internal/query"
	"github.com/Aetherall/neograph-sub003/internal/queryast"
)

// PathStep names one edge hop from a query's root down to an Item.
type PathStep struct {
	Edge   string
	NodeId uint64
}

// Item is one materialized, positioned row of a Query's current view
// (spec §4.4's "visible items").
type Item struct {
	Id             uint64
	Type           string
	Depth          int
	Path           []PathStep
	HasParent      bool
	ParentId       uint64
	EdgeFromParent string
	HasChildren    bool
	Expanded       bool
}

// QueryEvent is one entry of an event batch dispatched by a Query:
// enter, leave, change, or move (spec §4.4).
type QueryEvent struct {
	Kind     string
	Item     Item
	OldIndex int
	NewIndex int
}

// Query is a live, reactive, viewport-windowed materialization of a
// query tree over a Graph (spec §6 Graph.query). Destroy it once it
// is no longer needed; an undestroyed Query keeps receiving (and
// reacting to) every mutation on its involved types indefinitely.
type Query struct {
	g        *Graph
	view     *iq.View
	handleIds map[string][]uint64
}

// Query compiles def against the graph's schema and returns a live
// materialized view over the current state.
func (g *Graph) Query(def queryast.Query) (*Query, error) {
	compiled, err := iq.Compile(g.schema, g.idx, g.sel, def)
	if err != nil {
		return nil, classify(err)
	}
	view := iq.NewView(g.schema, g.store, g.idx, g.tracker, compiled)
	return &Query{g: g, view: view, handleIds: make(map[string][]uint64)}, nil
}

// QueryJSON decodes a query document in the §6 wire shape and runs it.
func (g *Graph) QueryJSON(text string) (*Query, error) {
	def, err := queryast.DecodeQueryJSON(text)
	if err != nil {
		return nil, classify(err)
	}
	return g.Query(def)
}

func (q *Query) toItem(it iq.Item) Item {
	// Each it.Path entry names an ancestor node together with the edge
	// that descends FROM it (see internal/query's walk), so the edge's
	// owning type is simply that ancestor's own type.
	path := make([]PathStep, len(it.Path))
	for i, s := range it.Path {
		edgeName := ""
		if ancestor, ok := q.g.store.Get(s.Node); ok {
			edgeName = q.g.schema.Type(ancestor.Type).Edge(s.Edge).Name
		}
		path[i] = PathStep{Edge: edgeName, NodeId: uint64(s.Node)}
	}
	out := Item{
		Id:          uint64(it.Id),
		Type:        q.g.schema.Type(it.Type).Name,
		Depth:       it.Depth,
		Path:        path,
		HasParent:   it.HasParent,
		ParentId:    uint64(it.ParentId),
		HasChildren: it.HasChildren,
		Expanded:    it.Expanded,
	}
	if it.HasParent {
		parent, ok := q.g.store.Get(it.ParentId)
		if ok {
			out.EdgeFromParent = q.g.schema.Type(parent.Type).Edge(it.EdgeFromParent).Name
		}
	}
	return out
}

func eventKindName(k iq.EventKind) string { return k.String() }

func parseEventKind(name string) (iq.EventKind, bool) {
	switch name {
	case "enter":
		return iq.Enter, true
	case "leave":
		return iq.Leave, true
	case "change":
		return iq.Change, true
	case "move":
		return iq.Move, true
	default:
		return 0, false
	}
}

func (q *Query) toEvents(events []iq.QueryEvent) []QueryEvent {
	out := make([]QueryEvent, len(events))
	for i, e := range events {
		out[i] = QueryEvent{Kind: eventKindName(e.Kind), Item: q.toItem(e.Item), OldIndex: e.OldIndex, NewIndex: e.NewIndex}
	}
	return out
}

// Items returns the current viewport window.
func (q *Query) Items() []Item {
	items := q.view.Items()
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = q.toItem(it)
	}
	return out
}

func (q *Query) Total() int      { return q.view.Total() }
func (q *Query) Offset() int     { return q.view.Offset() }
func (q *Query) SetLimit(n int)  { q.view.SetLimit(n) }
func (q *Query) ScrollTo(n int)  { q.view.ScrollTo(n) }
func (q *Query) ScrollBy(d int)  { q.view.ScrollBy(d) }

func (q *Query) IsExpanded(nodeId uint64, edge string) bool {
	return q.view.IsExpanded(ids.NodeId(nodeId), edge)
}

func (q *Query) Expand(nodeId uint64, edge string) ([]QueryEvent, error) {
	events, err := q.view.Expand(ids.NodeId(nodeId), edge)
	if err != nil {
		return nil, classify(err)
	}
	return q.toEvents(events), nil
}

func (q *Query) Collapse(nodeId uint64, edge string) ([]QueryEvent, error) {
	events, err := q.view.Collapse(ids.NodeId(nodeId), edge)
	if err != nil {
		return nil, classify(err)
	}
	return q.toEvents(events), nil
}

func (q *Query) Toggle(nodeId uint64, edge string) ([]QueryEvent, error) {
	events, err := q.view.Toggle(ids.NodeId(nodeId), edge)
	if err != nil {
		return nil, classify(err)
	}
	return q.toEvents(events), nil
}

// ExpandAll expands every edge reachable from the current items, up
// to maxDepth levels deep (maxDepth <= 0 means unlimited).
func (q *Query) ExpandAll(maxDepth int) []QueryEvent {
	return q.toEvents(q.view.ExpandAll(maxDepth))
}

func (q *Query) CollapseAll() []QueryEvent {
	return q.toEvents(q.view.CollapseAll())
}

// On registers fn for event ("enter"|"leave"|"change"|"move"),
// returning an idempotent unsubscribe function.
func (q *Query) On(event string, fn func(QueryEvent)) func() {
	kind, ok := parseEventKind(event)
	if !ok {
		return func() {}
	}
	id := q.view.On(kind, func(e iq.QueryEvent) { fn(q.toEvents([]iq.QueryEvent{e})[0]) })
	q.handleIds[event] = append(q.handleIds[event], id)
	return func() { q.view.Off(kind, id) }
}

// Off removes every handler registered for event, or every handler on
// this Query if event is empty.
func (q *Query) Off(event string) {
	if event == "" {
		for name := range q.handleIds {
			if kind, ok := parseEventKind(name); ok {
				q.view.OffAll(kind)
			}
		}
		q.handleIds = make(map[string][]uint64)
		return
	}
	kind, ok := parseEventKind(event)
	if !ok {
		return
	}
	q.view.OffAll(kind)
	delete(q.handleIds, event)
}

// Destroy releases the Query's subscriptions. Per spec §5, a view
// must be destroyed before its graph.
func (q *Query) Destroy() { q.view.Close() }
