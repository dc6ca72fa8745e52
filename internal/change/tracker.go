// SPDX-License-Identifier: MIT

// Package change routes every node mutation to the query views
// subscribed to that node's type, so a materialized view can apply an
// incremental update instead of re-running its whole query (spec §5).
package change

import "github.com/Aetherall/neograph-sub003/internal/ids"

type Kind uint8

const (
	Insert Kind = iota
	Delete
	PropertyUpdate
	Link
	Unlink
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case PropertyUpdate:
		return "property_update"
	case Link:
		return "link"
	case Unlink:
		return "unlink"
	default:
		return "unknown"
	}
}

// Event is one store mutation, already applied, being announced to
// subscribers. Fields outside a Kind's relevance are left zero.
type Event struct {
	Kind     Kind
	Type     ids.TypeId
	Node     ids.NodeId
	Property ids.PropertyId
	Old      ids.Value
	New      ids.Value
	Edge     ids.EdgeId
	Target   ids.NodeId
}

type subscription struct {
	id uint64
	fn func(Event)
}

// Tracker is a per-type fan-out registry: cheap to emit against
// (a slice walk, no map allocation per event) since a graph typically
// has far more mutations than live subscriptions.
type Tracker struct {
	subs   map[ids.TypeId][]subscription
	nextId uint64
}

func NewTracker() *Tracker {
	return &Tracker{subs: make(map[ids.TypeId][]subscription)}
}

// Subscribe registers fn for every event on typeId, returning a
// handle for Unsubscribe. Order of delivery across subscriptions on
// the same type follows registration order, since the query engine's
// enter/leave/update/move dispatch ordering guarantee (spec §5)
// ultimately rests on deterministic delivery order here.
func (tr *Tracker) Subscribe(typeId ids.TypeId, fn func(Event)) uint64 {
	tr.nextId++
	id := tr.nextId
	tr.subs[typeId] = append(tr.subs[typeId], subscription{id: id, fn: fn})
	return id
}

func (tr *Tracker) Unsubscribe(typeId ids.TypeId, id uint64) {
	subs := tr.subs[typeId]
	for i, s := range subs {
		if s.id == id {
			tr.subs[typeId] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (tr *Tracker) Emit(e Event) {
	for _, s := range tr.subs[e.Type] {
		s.fn(e)
	}
}
