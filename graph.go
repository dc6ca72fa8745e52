// SPDX-License-Identifier: MIT

// Package neograph is the Host API (spec §6): the single entry point
// an embedding language binding, CLI, or test program uses to build a
// schema, mutate a graph, and run reactive queries over it. It wires
// together the four internal subsystems — node store, index manager,
// rollup cache, change tracker — into the one atomic write path spec
// §5 requires: every Graph method that mutates state drives all four
// in lockstep and returns only once every subsystem (and every
// subscribed view) has observed the complete post-state.
package neograph

import (
	"github.com/Aetherall/neograph-sub003/internal/change"
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/rollup"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
)

// Event is the public shape of a node-level subscription callback's
// payload (spec §6 Graph.on), across the "change"/"delete"/"link"/
// "unlink" event names.
type Event struct {
	Kind     string
	NodeId   uint64
	Property string
	Old      interface{}
	New      interface{}
	Edge     string
	Target   uint64
}

type nodeSub struct {
	id    uint64
	event string
	fn    func(Event)
}

// Graph is one in-memory graph instance: its schema (fixed at
// construction, per spec §6 "only before first insert"), its node
// store, every declared index, the rollup cache, and the change
// tracker that fans mutation events out to both query views and
// Graph.on node-level subscribers.
type Graph struct {
	schema *schema.Schema
	store  *store.Store
	idx    *index.Manager
	rollup *rollup.Cache
	tracker *change.Tracker
	sel    *index.Selector

	nodeSubs    map[ids.NodeId][]nodeSub
	nextSubId   uint64
	subbedTypes map[ids.TypeId]bool
}

// NewGraph registers def as the schema and returns a ready Graph.
// Per spec §6, a graph's schema is fixed at construction — there is
// no later Graph.schema(s) call once nodes may already exist.
func NewGraph(def schema.Definition) (*Graph, error) {
	s, err := schema.Compile(def)
	if err != nil {
		return nil, classify(err)
	}
	return newGraph(s), nil
}

// NewGraphFromJSON decodes a schema document in the §6 wire shape and
// registers it.
func NewGraphFromJSON(text string) (*Graph, error) {
	def, err := schema.DecodeDefinitionJSON(text)
	if err != nil {
		return nil, classify(err)
	}
	return NewGraph(def)
}

func newGraph(s *schema.Schema) *Graph {
	st := store.New(s)
	mgr := index.NewManager(s)
	g := &Graph{
		schema:      s,
		store:       st,
		idx:         mgr,
		rollup:      rollup.NewCache(s, st, mgr),
		tracker:     change.NewTracker(),
		sel:         index.NewSelector(s),
		nodeSubs:    make(map[ids.NodeId][]nodeSub),
		subbedTypes: make(map[ids.TypeId]bool),
	}
	for _, t := range s.Types() {
		g.watchType(t.Id)
	}
	return g
}

// watchType subscribes the Graph's own node-level dispatcher to every
// mutation on typeId, exactly once. Subscribing for every schema type
// up front (the schema never changes after construction) means
// Graph.on never needs to lazily subscribe per node.
func (g *Graph) watchType(typeId ids.TypeId) {
	if g.subbedTypes[typeId] {
		return
	}
	g.subbedTypes[typeId] = true
	g.tracker.Subscribe(typeId, g.routeNodeEvent)
}

func (g *Graph) routeNodeEvent(ev change.Event) {
	subs := g.nodeSubs[ev.Node]
	if len(subs) == 0 {
		return
	}
	name := nodeEventName(ev.Kind)
	if name == "" {
		return
	}
	t := g.schema.Type(ev.Type)
	payload := Event{Kind: name, NodeId: uint64(ev.Node)}
	switch ev.Kind {
	case change.PropertyUpdate:
		payload.Property = t.Property(ev.Property).Name
		payload.Old = fromValue(ev.Old)
		payload.New = fromValue(ev.New)
	case change.Link, change.Unlink:
		payload.Edge = t.Edge(ev.Edge).Name
		payload.Target = uint64(ev.Target)
	}
	for _, s := range subs {
		if s.event == name {
			s.fn(payload)
		}
	}
}

func nodeEventName(k change.Kind) string {
	switch k {
	case change.PropertyUpdate:
		return "change"
	case change.Delete:
		return "delete"
	case change.Link:
		return "link"
	case change.Unlink:
		return "unlink"
	default:
		return ""
	}
}

// Schema exposes the compiled schema, e.g. so a CLI can list type
// names or a query compiler can resolve field names.
func (g *Graph) Schema() *schema.Schema { return g.schema }

// Node is the Host API's read-only view of one node: its id, its
// type name, and its current properties/edges/rollups widened back to
// plain Go values.
type Node struct {
	g *Graph
	n *store.Node
}

func (nd *Node) Id() uint64   { return uint64(nd.n.Id) }
func (nd *Node) Type() string { return nd.g.schema.Type(nd.n.Type).Name }

// Property returns name's current value, or nil if name is unknown or
// null.
func (nd *Node) Property(name string) interface{} {
	t := nd.g.schema.Type(nd.n.Type)
	propId, ok := t.PropertyByName(name)
	if !ok {
		return nil
	}
	return fromValue(nd.n.Property(propId))
}

// Properties returns every declared property as a plain map.
func (nd *Node) Properties() map[string]interface{} {
	t := nd.g.schema.Type(nd.n.Type)
	out := make(map[string]interface{}, len(t.Properties))
	for _, p := range t.Properties {
		out[p.Name] = fromValue(nd.n.Property(p.Id))
	}
	return out
}

// Edges returns the ordered, duplicate-free target id list for the
// named edge.
func (nd *Node) Edges(edgeName string) []uint64 {
	t := nd.g.schema.Type(nd.n.Type)
	edgeId, ok := t.EdgeByName(edgeName)
	if !ok {
		return nil
	}
	targets := nd.n.EdgeTargets(edgeId)
	out := make([]uint64, len(targets))
	for i, tg := range targets {
		out[i] = uint64(tg)
	}
	return out
}

// Rollup returns the current value of the named derived field.
func (nd *Node) Rollup(name string) interface{} {
	t := nd.g.schema.Type(nd.n.Type)
	rId, ok := t.RollupByName(name)
	if !ok {
		return nil
	}
	return fromValue(nd.n.RollupValue(rId))
}

// Insert creates a node of typeName with props (a subset of its
// declared properties; the rest default to null), computing its
// initial rollups and indexing it. Spec §3's insert lifecycle step.
func (g *Graph) Insert(typeName string, props map[string]interface{}) (uint64, error) {
	typeId, ok := g.schema.TypeByName(typeName)
	if !ok {
		return 0, classify(&schema.Error{Msg: "unknown type " + typeName})
	}
	t := g.schema.Type(typeId)

	resolved := make(map[string]ids.Value, len(props))
	for name, raw := range props {
		propId, ok := t.PropertyByName(name)
		if !ok {
			return 0, classify(&store.TypeError{Msg: "unknown property " + name + " on type " + typeName})
		}
		v, err := toValue(t.Property(propId).Kind, raw)
		if err != nil {
			return 0, classify(&store.TypeError{Msg: "property " + name + ": " + err.Error()})
		}
		resolved[name] = v
	}

	n, err := g.store.Insert(typeId, resolved)
	if err != nil {
		return 0, classify(err)
	}
	g.idx.OnInsert(n)
	g.rollup.OnInsert(n)
	g.tracker.Emit(change.Event{Kind: change.Insert, Type: typeId, Node: n.Id})
	return uint64(n.Id), nil
}

func (g *Graph) lookup(id uint64) (*store.Node, error) {
	n, ok := g.store.Get(ids.NodeId(id))
	if !ok {
		return nil, classify(&NotFoundError{Id: id})
	}
	return n, nil
}

// Get returns the node for id, or (nil, false) if it does not exist
// (or was deleted).
func (g *Graph) Get(id uint64) (*Node, bool) {
	n, ok := g.store.Get(ids.NodeId(id))
	if !ok {
		return nil, false
	}
	return &Node{g: g, n: n}, true
}

// Update writes props onto id's node, maintaining every index that
// references a written field and every Traverse rollup (on other
// nodes) that reads it, and emitting one PropertyUpdate per written
// field, in props' iteration order, before returning. Every property
// is validated before any is written, so a rejected update changes
// nothing. First/Last rollups of nodes linked to this one are not
// recomputed by a property write.
func (g *Graph) Update(id uint64, props map[string]interface{}) error {
	n, err := g.lookup(id)
	if err != nil {
		return err
	}
	t := g.schema.Type(n.Type)
	resolved := make(map[string]ids.Value, len(props))
	for name, raw := range props {
		propId, ok := t.PropertyByName(name)
		if !ok {
			return classify(&store.TypeError{Msg: "unknown property " + name + " on type " + t.Name})
		}
		v, err := toValue(t.Property(propId).Kind, raw)
		if err != nil {
			return classify(&store.TypeError{Msg: "property " + name + ": " + err.Error()})
		}
		resolved[name] = v
	}
	for name, v := range resolved {
		propId, _ := t.PropertyByName(name)
		old, err := g.store.SetProperty(n, name, v)
		if err != nil {
			return classify(err)
		}
		g.idx.OnUpdateProperty(n, propId, old)
		g.rollup.OnUpdateProperty(n, propId)
		g.tracker.Emit(change.Event{Kind: change.PropertyUpdate, Type: n.Type, Node: n.Id, Property: propId, Old: old, New: v})
	}
	return nil
}

// Delete removes id, cascading an Unlink through both sides of every
// edge it participates in (spec §3's delete lifecycle step), then
// removing it from every index and emitting Delete last so that any
// subscribed view's leave events reflect the fully-unlinked state.
func (g *Graph) Delete(id uint64) error {
	n, err := g.lookup(id)
	if err != nil {
		return err
	}
	t := g.schema.Type(n.Type)

	// Every node pointing at n does so through one of n's own edges'
	// reverse pairing (edge symmetry is maintained on every link), so
	// walking n's own edge lists and unlinking both sides of each is
	// sufficient to cascade the removal in both directions.
	for _, e := range t.Edges {
		for _, targetId := range append([]ids.NodeId(nil), n.EdgeTargets(e.Id)...) {
			if err := g.unlink(n, e.Id, targetId); err != nil {
				return err
			}
		}
	}

	g.idx.OnDelete(n)
	g.store.Delete(n.Id)
	g.tracker.Emit(change.Event{Kind: change.Delete, Type: n.Type, Node: n.Id})
	return nil
}

// Link establishes both directions of the named edge: src.edge→tgt
// and tgt.reverse(edge)→src, per the edge-symmetry invariant (spec
// §3), updating indexes and rollups on both sides and emitting one
// Link event per side.
func (g *Graph) Link(src uint64, edgeName string, tgt uint64) error {
	srcNode, err := g.lookup(src)
	if err != nil {
		return err
	}
	tgtNode, err := g.lookup(tgt)
	if err != nil {
		return err
	}
	t := g.schema.Type(srcNode.Type)
	edgeId, ok := t.EdgeByName(edgeName)
	if !ok {
		return classify(&schema.Error{Msg: "unknown edge " + edgeName + " on type " + t.Name})
	}
	edgeDef := t.Edge(edgeId)
	if edgeDef.TargetType != tgtNode.Type {
		return classify(&schema.Error{Msg: "edge " + edgeName + " does not target " + g.schema.Type(tgtNode.Type).Name})
	}
	return g.link(srcNode, edgeId, tgtNode)
}

func (g *Graph) link(src *store.Node, edgeId ids.EdgeId, tgt *store.Node) error {
	t := g.schema.Type(src.Type)
	edgeDef := t.Edge(edgeId)
	reverseId := edgeDef.ReverseId

	srcChanged := g.store.Link(src, edgeId, tgt.Id)
	tgtChanged := g.store.Link(tgt, reverseId, src.Id)
	if !srcChanged && !tgtChanged {
		return nil // already linked on both sides; nothing to maintain or announce
	}

	g.idx.OnLink(src, edgeId, tgt.Id)
	g.idx.OnLink(tgt, reverseId, src.Id)
	g.rollup.OnLinkOrUnlink(src, edgeId)
	g.rollup.OnLinkOrUnlink(tgt, reverseId)

	g.tracker.Emit(change.Event{Kind: change.Link, Type: src.Type, Node: src.Id, Edge: edgeId, Target: tgt.Id})
	g.tracker.Emit(change.Event{Kind: change.Link, Type: tgt.Type, Node: tgt.Id, Edge: reverseId, Target: src.Id})
	return nil
}

// Unlink removes both directions of the named edge.
func (g *Graph) Unlink(src uint64, edgeName string, tgt uint64) error {
	srcNode, err := g.lookup(src)
	if err != nil {
		return err
	}
	t := g.schema.Type(srcNode.Type)
	edgeId, ok := t.EdgeByName(edgeName)
	if !ok {
		return classify(&schema.Error{Msg: "unknown edge " + edgeName + " on type " + t.Name})
	}
	return g.unlink(srcNode, edgeId, ids.NodeId(tgt))
}

func (g *Graph) unlink(src *store.Node, edgeId ids.EdgeId, tgtId ids.NodeId) error {
	t := g.schema.Type(src.Type)
	edgeDef := t.Edge(edgeId)
	reverseId := edgeDef.ReverseId

	tgt, ok := g.store.Get(tgtId)
	if !ok {
		return nil // already gone (e.g. a cascading delete on the other side)
	}

	srcChanged := g.store.Unlink(src, edgeId, tgtId)
	tgtChanged := g.store.Unlink(tgt, reverseId, src.Id)
	if !srcChanged && !tgtChanged {
		return nil
	}

	g.idx.OnUnlink(src, edgeId, tgtId)
	g.idx.OnUnlink(tgt, reverseId, src.Id)
	g.rollup.OnLinkOrUnlink(src, edgeId)
	g.rollup.OnLinkOrUnlink(tgt, reverseId)

	g.tracker.Emit(change.Event{Kind: change.Unlink, Type: src.Type, Node: src.Id, Edge: edgeId, Target: tgtId})
	g.tracker.Emit(change.Event{Kind: change.Unlink, Type: tgt.Type, Node: tgt.Id, Edge: reverseId, Target: src.Id})
	return nil
}

// Edges returns the current target ids of edgeName on id.
func (g *Graph) Edges(id uint64, edgeName string) ([]uint64, error) {
	n, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	t := g.schema.Type(n.Type)
	edgeId, ok := t.EdgeByName(edgeName)
	if !ok {
		return nil, classify(&schema.Error{Msg: "unknown edge " + edgeName + " on type " + t.Name})
	}
	targets := n.EdgeTargets(edgeId)
	out := make([]uint64, len(targets))
	for i, tg := range targets {
		out[i] = uint64(tg)
	}
	return out, nil
}

// HasEdge reports whether src.edgeName contains tgt.
func (g *Graph) HasEdge(src uint64, edgeName string, tgt uint64) (bool, error) {
	n, err := g.lookup(src)
	if err != nil {
		return false, err
	}
	t := g.schema.Type(n.Type)
	edgeId, ok := t.EdgeByName(edgeName)
	if !ok {
		return false, classify(&schema.Error{Msg: "unknown edge " + edgeName + " on type " + t.Name})
	}
	return n.HasEdgeTarget(edgeId, ids.NodeId(tgt)), nil
}

// On registers fn for event ("change"|"delete"|"link"|"unlink") on
// id, returning an idempotent unsubscribe function (spec §6).
func (g *Graph) On(id uint64, event string, fn func(Event)) func() {
	g.nextSubId++
	subId := g.nextSubId
	nid := ids.NodeId(id)
	g.nodeSubs[nid] = append(g.nodeSubs[nid], nodeSub{id: subId, event: event, fn: fn})
	return func() { g.off(nid, subId) }
}

// Off removes every subscription on id, or only those for event if
// event is non-empty.
func (g *Graph) Off(id uint64, event string) {
	nid := ids.NodeId(id)
	if event == "" {
		delete(g.nodeSubs, nid)
		return
	}
	subs := g.nodeSubs[nid]
	kept := subs[:0]
	for _, s := range subs {
		if s.event != event {
			kept = append(kept, s)
		}
	}
	g.nodeSubs[nid] = kept
}

func (g *Graph) off(nid ids.NodeId, subId uint64) {
	subs := g.nodeSubs[nid]
	for i, s := range subs {
		if s.id == subId {
			g.nodeSubs[nid] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
