// SPDX-License-Identifier: MIT

package rollup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
)

// link performs both directions of a Link, matching the symmetry the
// Host API's Graph type is responsible for keeping.
func link(st *store.Store, mgr *index.Manager, rc *Cache, s *schema.Schema, src *store.Node, edge ids.EdgeId, dst *store.Node) {
	reverse := s.Type(src.Type).Edge(edge).ReverseId
	st.Link(src, edge, dst.Id)
	st.Link(dst, reverse, src.Id)
	mgr.OnLink(src, edge, dst.Id)
	mgr.OnLink(dst, reverse, src.Id)
	rc.OnLinkOrUnlink(src, edge)
	rc.OnLinkOrUnlink(dst, reverse)
}

func TestCountRollupTracksEdgeLinks(t *testing.T) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:    "Parent",
			Edges:   []schema.EdgeDefinition{{Name: "children", Target: "Child", Reverse: "parent"}},
			Rollups: []schema.RollupDefinition{{Name: "count", Kind: "count", Edge: "children"}},
		},
		{
			Name:  "Child",
			Edges: []schema.EdgeDefinition{{Name: "parent", Target: "Parent", Reverse: "children"}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)
	parentId, _ := s.TypeByName("Parent")
	childId, _ := s.TypeByName("Child")
	childrenEdge, _ := s.Type(parentId).EdgeByName("children")
	countId, _ := s.Type(parentId).RollupByName("count")

	st := store.New(s)
	mgr := index.NewManager(s)
	rc := NewCache(s, st, mgr)

	parent, _ := st.Insert(parentId, nil)
	mgr.OnInsert(parent)
	rc.OnInsert(parent)
	require.Equal(t, ids.IntValue(0), parent.RollupValue(countId))

	c1, _ := st.Insert(childId, nil)
	mgr.OnInsert(c1)
	rc.OnInsert(c1)
	link(st, mgr, rc, s, parent, childrenEdge, c1)
	require.Equal(t, ids.IntValue(1), parent.RollupValue(countId))

	c2, _ := st.Insert(childId, nil)
	mgr.OnInsert(c2)
	rc.OnInsert(c2)
	link(st, mgr, rc, s, parent, childrenEdge, c2)
	require.Equal(t, ids.IntValue(2), parent.RollupValue(countId))
}

func TestTraverseRollupFollowsPropertyUpdates(t *testing.T) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:  "Post",
			Edges: []schema.EdgeDefinition{{Name: "author", Target: "User", Reverse: "posts"}},
			Rollups: []schema.RollupDefinition{
				{Name: "author_name", Kind: "traverse", Edge: "author", Field: "name"},
			},
		},
		{
			Name:       "User",
			Properties: []schema.PropertyDefinition{{Name: "name", Type: "string"}},
			Edges:      []schema.EdgeDefinition{{Name: "posts", Target: "Post", Reverse: "author"}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)
	postId, _ := s.TypeByName("Post")
	userId, _ := s.TypeByName("User")
	authorEdge, _ := s.Type(postId).EdgeByName("author")
	authorNameId, _ := s.Type(postId).RollupByName("author_name")
	nameProp, _ := s.Type(userId).PropertyByName("name")

	st := store.New(s)
	mgr := index.NewManager(s)
	rc := NewCache(s, st, mgr)

	user, _ := st.Insert(userId, map[string]ids.Value{"name": ids.StringValue("ada")})
	mgr.OnInsert(user)
	rc.OnInsert(user)
	post, _ := st.Insert(postId, nil)
	mgr.OnInsert(post)
	rc.OnInsert(post)
	require.True(t, post.RollupValue(authorNameId).IsNull())

	link(st, mgr, rc, s, post, authorEdge, user)
	require.Equal(t, ids.StringValue("ada"), post.RollupValue(authorNameId))

	old, err := st.SetProperty(user, "name", ids.StringValue("grace"))
	require.NoError(t, err)
	mgr.OnUpdateProperty(user, nameProp, old)
	rc.OnUpdateProperty(user, nameProp)
	require.Equal(t, ids.StringValue("grace"), post.RollupValue(authorNameId))
}

func TestFirstLastRollupOverChildIndex(t *testing.T) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:  "Thread",
			Edges: []schema.EdgeDefinition{{Name: "stacks", Target: "Stack", Reverse: "thread"}},
			Rollups: []schema.RollupDefinition{
				{Name: "first_stack", Kind: "first", Edge: "stacks", Index: 0},
				{Name: "last_stack", Kind: "last", Edge: "stacks", Index: 0},
			},
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
	stacksEdge, _ := s.Type(threadId).EdgeByName("stacks")
	firstId, _ := s.Type(threadId).RollupByName("first_stack")
	lastId, _ := s.Type(threadId).RollupByName("last_stack")

	st := store.New(s)
	mgr := index.NewManager(s)
	rc := NewCache(s, st, mgr)

	thread, _ := st.Insert(threadId, nil)
	mgr.OnInsert(thread)
	rc.OnInsert(thread)
	require.True(t, thread.RollupValue(firstId).IsNull())

	var stacks []*store.Node
	for _, ts := range []int64{10, 30, 20} {
		stack, _ := st.Insert(stackId, map[string]ids.Value{"ts": ids.IntValue(ts)})
		mgr.OnInsert(stack)
		rc.OnInsert(stack)
		link(st, mgr, rc, s, thread, stacksEdge, stack)
		stacks = append(stacks, stack)
	}

	// ts desc: 30 (stacks[1]) first, 10 (stacks[0]) last
	require.Equal(t, ids.IntValue(int64(stacks[1].Id)), thread.RollupValue(firstId))
	require.Equal(t, ids.IntValue(int64(stacks[0].Id)), thread.RollupValue(lastId))
}
