// SPDX-License-Identifier: MIT

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/queryfilter"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
)

// buildThreadStackSchema mirrors the cross-entity scenario used
// throughout the schema tests: Thread --stacks--> Stack, with Stack
// indexed (thread, ts desc) so "first/last stack of a thread" and
// "stacks of a thread ordered by recency" both scan one index.
func buildThreadStackSchema(t *testing.T) (*schema.Schema, ids.TypeId, ids.TypeId, ids.EdgeId, ids.PropertyId, ids.IndexId) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:  "Thread",
			Edges: []schema.EdgeDefinition{{Name: "stacks", Target: "Stack", Reverse: "thread"}},
		},
		{
			Name:       "Stack",
			Properties: []schema.PropertyDefinition{{Name: "ts", Type: "int"}},
			Edges:      []schema.EdgeDefinition{{Name: "thread", Target: "Thread", Reverse: "stacks"}},
			Indexes: []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{
				{Name: "thread"},
				{Name: "ts", Direction: "desc"},
			}}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)

	threadId, _ := s.TypeByName("Thread")
	stackId, _ := s.TypeByName("Stack")
	stackType := s.Type(stackId)
	edgeId, _ := stackType.EdgeByName("thread")
	tsProp, _ := stackType.PropertyByName("ts")
	return s, threadId, stackId, edgeId, tsProp, stackType.Indexes[0].Id
}

func TestManagerEdgePrefixedIndexOrdersByDescTs(t *testing.T) {
	s, threadId, stackId, edgeId, tsProp, idxId := buildThreadStackSchema(t)
	st := store.New(s)
	m := NewManager(s)

	thread, err := st.Insert(threadId, nil)
	require.NoError(t, err)
	m.OnInsert(thread)

	otherThread, err := st.Insert(threadId, nil)
	require.NoError(t, err)
	m.OnInsert(otherThread)

	var want []ids.NodeId
	for i, ts := range []int64{10, 30, 20} {
		stack, err := st.Insert(stackId, map[string]ids.Value{"ts": ids.IntValue(ts)})
		require.NoError(t, err)
		m.OnInsert(stack)
		st.Link(stack, edgeId, thread.Id)
		m.OnLink(stack, edgeId, thread.Id)
		_ = i
		want = append(want, stack.Id)
	}
	// another thread's stack must never show up in the first thread's scan
	decoy, err := st.Insert(stackId, map[string]ids.Value{"ts": ids.IntValue(999)})
	require.NoError(t, err)
	m.OnInsert(decoy)
	st.Link(decoy, edgeId, otherThread.Id)
	m.OnLink(decoy, edgeId, otherThread.Id)

	stackType := s.Type(stackId)
	plan, ok := NewSelector(s).Select(Request{
		Type:       stackId,
		EdgeEquals: map[ids.EdgeId]ids.NodeId{edgeId: thread.Id},
	})
	require.True(t, ok)
	require.Equal(t, idxId, plan.Index)

	it := m.Scan(stackType, plan, Request{Type: stackId, EdgeEquals: map[ids.EdgeId]ids.NodeId{edgeId: thread.Id}})
	var got []ids.NodeId
	for {
		_, v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	// ts desc: 30, 20, 10 -> want[1], want[2], want[0]
	require.Equal(t, []ids.NodeId{want[1], want[2], want[0]}, got)
	_ = tsProp
}

func TestManagerOnUpdatePropertyMovesEntry(t *testing.T) {
	s, threadId, stackId, edgeId, tsProp, idxId := buildThreadStackSchema(t)
	st := store.New(s)
	m := NewManager(s)

	thread, _ := st.Insert(threadId, nil)
	m.OnInsert(thread)
	stack, _ := st.Insert(stackId, map[string]ids.Value{"ts": ids.IntValue(1)})
	m.OnInsert(stack)
	st.Link(stack, edgeId, thread.Id)
	m.OnLink(stack, edgeId, thread.Id)

	old, err := st.SetProperty(stack, "ts", ids.IntValue(50))
	require.NoError(t, err)
	m.OnUpdateProperty(stack, tsProp, old)

	stackType := s.Type(stackId)
	tr := m.Tree(stackId, idxId)
	require.Equal(t, 1, tr.Len(), "stale entry must be gone, leaving exactly the updated one")

	it := tr.Scan()
	_, v, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, stack.Id, v)
	_ = stackType
}

func TestManagerOnUnlinkRemovesEntry(t *testing.T) {
	s, threadId, stackId, edgeId, _, idxId := buildThreadStackSchema(t)
	st := store.New(s)
	m := NewManager(s)

	thread, _ := st.Insert(threadId, nil)
	m.OnInsert(thread)
	stack, _ := st.Insert(stackId, map[string]ids.Value{"ts": ids.IntValue(1)})
	m.OnInsert(stack)
	st.Link(stack, edgeId, thread.Id)
	m.OnLink(stack, edgeId, thread.Id)

	st.Unlink(stack, edgeId, thread.Id)
	m.OnUnlink(stack, edgeId, thread.Id)

	require.Equal(t, 0, m.Tree(stackId, idxId).Len())
}

func TestManagerOnDeleteClearsAllEntries(t *testing.T) {
	s, threadId, stackId, edgeId, _, idxId := buildThreadStackSchema(t)
	st := store.New(s)
	m := NewManager(s)

	thread, _ := st.Insert(threadId, nil)
	m.OnInsert(thread)
	stack, _ := st.Insert(stackId, map[string]ids.Value{"ts": ids.IntValue(1)})
	m.OnInsert(stack)
	st.Link(stack, edgeId, thread.Id)
	m.OnLink(stack, edgeId, thread.Id)

	m.OnUnlink(thread, edgeId, stack.Id)
	m.OnDelete(stack)
	st.Delete(stack.Id)

	require.Equal(t, 0, m.Tree(stackId, idxId).Len())
}

func TestSelectorFallsBackWithoutEdgeEquality(t *testing.T) {
	s, _, stackId, _, _, _ := buildThreadStackSchema(t)
	sel := NewSelector(s)
	_, ok := sel.Select(Request{Type: stackId})
	require.False(t, ok, "an edge-prefixed index cannot be used without binding the edge")
}

func TestSelectorRangeFilterOnPropertyOnlyIndex(t *testing.T) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:       "Event",
			Properties: []schema.PropertyDefinition{{Name: "at", Type: "int"}},
			Indexes:    []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{{Name: "at"}}}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)
	eventId, _ := s.TypeByName("Event")
	eventType := s.Type(eventId)
	atProp, _ := eventType.PropertyByName("at")

	st := store.New(s)
	m := NewManager(s)
	var all []ids.NodeId
	for _, at := range []int64{5, 15, 25, 35} {
		n, _ := st.Insert(eventId, map[string]ids.Value{"at": ids.IntValue(at)})
		m.OnInsert(n)
		all = append(all, n.Id)
	}

	req := Request{
		Type:    eventId,
		Filters: []queryfilter.Filter{{Property: atProp, Op: queryfilter.Ge, Value: ids.IntValue(15)}},
	}
	sel := NewSelector(s)
	plan, ok := sel.Select(req)
	require.True(t, ok)
	require.Equal(t, eventType.Indexes[0].Id, plan.Index)
	require.Equal(t, 0, plan.RangeFieldIndex)

	it := m.Scan(eventType, plan, req)
	var got []ids.NodeId
	for {
		_, v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []ids.NodeId{all[1], all[2], all[3]}, got)
}
