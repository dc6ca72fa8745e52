// SPDX-License-Identifier: MIT

package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/queryast"
	"github.com/Aetherall/neograph-sub003/internal/schema"
)

func threadStackSchema(t *testing.T) *schema.Schema {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:       "Thread",
			Properties: []schema.PropertyDefinition{{Name: "title", Type: "string"}},
			Edges:      []schema.EdgeDefinition{{Name: "stacks", Target: "Stack", Reverse: "thread"}},
			Indexes: []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{
				{Name: "title"},
			}}},
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
	return s
}

func TestCompileResolvesRootAndEdgeLevels(t *testing.T) {
	s := threadStackSchema(t)
	sel := index.NewSelector(s)

	q := queryast.Query{
		Root: "Thread",
		Edges: []queryast.EdgeSel{
			{Name: "stacks", Sorts: []queryast.SortDef{{Field: "ts", Direction: "desc"}}},
		},
	}
	compiled, err := Compile(s, index.NewManager(s), sel, q)
	require.NoError(t, err)
	require.Equal(t, "Thread", s.Type(compiled.Root.TypeId).Name)
	require.Len(t, compiled.Root.Children, 1)
	child := compiled.Root.Children[0]
	require.Equal(t, "stacks", child.Name)
	require.True(t, child.HasReverseEdge)
	require.True(t, child.Plan.SortSatisfied)
}

func TestCompileRejectsUnknownRoot(t *testing.T) {
	s := threadStackSchema(t)
	sel := index.NewSelector(s)
	_, err := Compile(s, index.NewManager(s), sel, queryast.Query{Root: "Nope"})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCompileRejectsUnknownEdge(t *testing.T) {
	s := threadStackSchema(t)
	sel := index.NewSelector(s)
	q := queryast.Query{Root: "Thread", Edges: []queryast.EdgeSel{{Name: "nope"}}}
	_, err := Compile(s, index.NewManager(s), sel, q)
	require.Error(t, err)
}

func TestCompileRejectsUnsatisfiableSort(t *testing.T) {
	s := threadStackSchema(t)
	sel := index.NewSelector(s)
	q := queryast.Query{
		Root: "Thread",
		Edges: []queryast.EdgeSel{
			{Name: "stacks", Sorts: []queryast.SortDef{{Field: "ts", Direction: "asc"}}},
		},
	}
	_, err := Compile(s, index.NewManager(s), sel, q)
	require.Error(t, err)
}

func TestCompileRecursiveEdgeSelfLoop(t *testing.T) {
	def := schema.Definition{Types: []schema.TypeDefinition{
		{
			Name:  "Category",
			Edges: []schema.EdgeDefinition{{Name: "children", Target: "Category", Reverse: "parent"}, {Name: "parent", Target: "Category", Reverse: "children"}},
			Indexes: []schema.IndexDefinition{{Fields: []schema.IndexFieldDefinition{
				{Name: "parent"},
			}}},
		},
	}}
	s, err := schema.Compile(def)
	require.NoError(t, err)
	sel := index.NewSelector(s)

	q := queryast.Query{
		Root:  "Category",
		Id:    uint64p(0),
		Edges: []queryast.EdgeSel{{Name: "children", Recursive: true}},
	}
	compiled, err := Compile(s, index.NewManager(s), sel, q)
	require.NoError(t, err)
	require.Len(t, compiled.Root.Children, 1)
	child := compiled.Root.Children[0]
	require.True(t, child.Recursive)
	require.Len(t, child.Children, 1)
	require.True(t, child == child.Children[0])
}

func uint64p(v uint64) *uint64 { return &v }
