// SPDX-License-Identifier: MIT

package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aetherall/neograph-sub003/internal/change"
	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/queryast"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
)

type harness struct {
	s   *schema.Schema
	st  *store.Store
	idx *index.Manager
	tr  *change.Tracker
}

func newUserSchema(t *testing.T) harness {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:       "User",
			Properties: []schema.PropertyDefinition{{Name: "name", Type: "string"}},
			Indexes: []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{
				{Name: "name"},
			}}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)
	return harness{s: s, st: store.New(s), idx: index.NewManager(s), tr: change.NewTracker()}
}

func (h harness) insertUser(t *testing.T, name string) *store.Node {
	userId, _ := h.s.TypeByName("User")
	n, err := h.st.Insert(userId, map[string]ids.Value{"name": ids.StringValue(name)})
	require.NoError(t, err)
	h.idx.OnInsert(n)
	h.tr.Emit(change.Event{Kind: change.Insert, Type: userId, Node: n.Id})
	return n
}

// TestBasicEnterAndSort mirrors worked scenario 1: inserting Bob then
// Alice into a name-sorted User view enters Alice ahead of Bob.
func TestBasicEnterAndSort(t *testing.T) {
	h := newUserSchema(t)
	sel := index.NewSelector(h.s)
	compiled, err := Compile(h.s, h.idx, sel, queryast.Query{
		Root:  "User",
		Sorts: []queryast.SortDef{{Field: "name"}},
	})
	require.NoError(t, err)

	view := NewView(h.s, h.st, h.idx, h.tr, compiled)
	defer view.Close()

	bob := h.insertUser(t, "Bob")
	events := view.lastEvents
	require.Len(t, events, 1)
	require.Equal(t, Enter, events[0].Kind)
	require.Equal(t, bob.Id, events[0].Item.Id)

	alice := h.insertUser(t, "Alice")
	events = view.lastEvents
	require.Len(t, events, 1)
	require.Equal(t, Enter, events[0].Kind)
	require.Equal(t, alice.Id, events[0].Item.Id)

	items := view.Items()
	require.Len(t, items, 2)
	require.Equal(t, alice.Id, items[0].Id)
	require.Equal(t, bob.Id, items[1].Id)
}

// TestUpdateSortFieldEmitsMoveAndChange mirrors worked scenario 2:
// updating a sorted field always emits move alongside change, even
// when the item's position does not actually change.
func TestUpdateSortFieldEmitsMoveAndChange(t *testing.T) {
	h := newUserSchema(t)
	sel := index.NewSelector(h.s)
	compiled, err := Compile(h.s, h.idx, sel, queryast.Query{
		Root:  "User",
		Sorts: []queryast.SortDef{{Field: "name"}},
	})
	require.NoError(t, err)

	view := NewView(h.s, h.st, h.idx, h.tr, compiled)
	defer view.Close()

	bob := h.insertUser(t, "Bob")
	view.Refresh()

	userId, _ := h.s.TypeByName("User")
	nameProp, _ := h.s.Type(userId).PropertyByName("name")
	old, err := h.st.SetProperty(bob, "name", ids.StringValue("Aaron"))
	require.NoError(t, err)
	h.idx.OnUpdateProperty(bob, nameProp, old)
	h.tr.Emit(change.Event{Kind: change.PropertyUpdate, Type: userId, Node: bob.Id, Property: nameProp, Old: old, New: ids.StringValue("Aaron")})

	events := view.lastEvents
	var sawMove, sawChange bool
	for _, e := range events {
		if e.Kind == Move {
			sawMove = true
		}
		if e.Kind == Change {
			sawChange = true
		}
	}
	require.True(t, sawMove)
	require.True(t, sawChange)
}

func TestExpandCollapseParentChild(t *testing.T) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:       "Parent",
			Properties: []schema.PropertyDefinition{{Name: "name", Type: "string"}},
			Edges:      []schema.EdgeDefinition{{Name: "children", Target: "Child", Reverse: "parent"}},
			Indexes: []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{
				{Name: "name"},
			}}},
		},
		{
			Name:  "Child",
			Edges: []schema.EdgeDefinition{{Name: "parent", Target: "Parent", Reverse: "children"}},
			Indexes: []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{
				{Name: "parent"},
			}}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)
	st := store.New(s)
	mgr := index.NewManager(s)
	tr := change.NewTracker()
	sel := index.NewSelector(s)

	parentId, _ := s.TypeByName("Parent")
	childId, _ := s.TypeByName("Child")
	childrenEdge, _ := s.Type(parentId).EdgeByName("children")
	reverseEdge, _ := s.Type(childId).EdgeByName("parent")

	parent, _ := st.Insert(parentId, nil)
	mgr.OnInsert(parent)
	child, _ := st.Insert(childId, nil)
	mgr.OnInsert(child)
	st.Link(parent, childrenEdge, child.Id)
	st.Link(child, reverseEdge, parent.Id)
	mgr.OnLink(parent, childrenEdge, child.Id)
	mgr.OnLink(child, reverseEdge, parent.Id)

	compiled, err := Compile(s, mgr, sel, queryast.Query{
		Root:  "Parent",
		Edges: []queryast.EdgeSel{{Name: "children"}},
	})
	require.NoError(t, err)

	view := NewView(s, st, mgr, tr, compiled)
	defer view.Close()

	require.Len(t, view.Items(), 1)
	require.True(t, view.Items()[0].HasChildren)
	require.False(t, view.Items()[0].Expanded)

	events, err := view.Expand(parent.Id, "children")
	require.NoError(t, err)
	require.Len(t, events, 2) // change on parent (expanded flips) + enter for child
	require.Len(t, view.Items(), 2)
	require.Equal(t, child.Id, view.Items()[1].Id)
	require.True(t, view.Items()[1].HasParent)
	require.Equal(t, parent.Id, view.Items()[1].ParentId)

	events, err = view.Collapse(parent.Id, "children")
	require.NoError(t, err)
	require.Len(t, view.Items(), 1)
	var sawLeave bool
	for _, e := range events {
		if e.Kind == Leave {
			sawLeave = true
		}
	}
	require.True(t, sawLeave)
}

func TestExpandRejectsUnknownEdge(t *testing.T) {
	h := newUserSchema(t)
	sel := index.NewSelector(h.s)
	compiled, err := Compile(h.s, h.idx, sel, queryast.Query{Root: "User"})
	require.NoError(t, err)
	view := NewView(h.s, h.st, h.idx, h.tr, compiled)
	defer view.Close()

	bob := h.insertUser(t, "Bob")
	view.Refresh()

	_, err = view.Expand(bob.Id, "nope")
	require.Error(t, err)
	var ee *ExpansionError
	require.ErrorAs(t, err, &ee)
}
