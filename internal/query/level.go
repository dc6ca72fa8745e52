// SPDX-License-Identifier: MIT

package query

import (
	"fmt"

	"github.com/Aetherall/neograph-sub003/internal/ids"
	"github.com/Aetherall/neograph-sub003/internal/index"
	"github.com/Aetherall/neograph-sub003/internal/queryast"
	"github.com/Aetherall/neograph-sub003/internal/queryfilter"
	"github.com/Aetherall/neograph-sub003/internal/schema"
)

// Level is one compiled position in a query tree: the root, or one
// EdgeSel. A recursive selection is represented as a level that lists
// itself among its own Children, per spec §9's design note, rather
// than by unrolling to a fixed depth.
type Level struct {
	TypeId ids.TypeId

	// EdgeFromParent is the edge id, declared on the PARENT's type,
	// that reached this level; zero/unused for the root.
	EdgeFromParent ids.EdgeId
	Name           string

	// ReverseEdge is the edge id declared on THIS level's type that
	// points back at the parent; used as the scan's edge-equality
	// prefix. Unused for the root.
	ReverseEdge    ids.EdgeId
	HasReverseEdge bool

	Virtual   bool
	Recursive bool

	Filters  []queryfilter.Filter
	Sorts    []index.SortField
	Plan     index.Plan
	Residual []queryfilter.Filter

	Children []*Level
}

// Compiled is a fully validated query, ready to drive a View.
type Compiled struct {
	Root      *Level
	HasId     bool
	Id        ids.NodeId
}

// Compile resolves def against s, validating every edge name, filter
// field, and sort field, and selecting (and requiring) a covering
// index for every level per spec §4.4.
func Compile(s *schema.Schema, mgr *index.Manager, sel *index.Selector, def queryast.Query) (*Compiled, error) {
	typeId, ok := s.TypeByName(def.Root)
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown root type %q", def.Root)}
	}

	hasId := def.Id != nil

	root, err := compileLevel(s, sel, typeId, "", 0, false, def.Virtual, false, hasId, def.Filters, def.Sorts, def.Edges)
	if err != nil {
		return nil, err
	}

	c := &Compiled{Root: root}
	if hasId {
		c.HasId = true
		c.Id = ids.NodeId(*def.Id)
	}
	return c, nil
}

func compileLevel(
	s *schema.Schema,
	sel *index.Selector,
	typeId ids.TypeId,
	name string,
	reverseEdge ids.EdgeId,
	hasReverseEdge bool,
	virtual bool,
	recursive bool,
	skipIndex bool,
	rawFilters []queryast.FilterDef,
	rawSorts []queryast.SortDef,
	rawEdges []queryast.EdgeSel,
) (*Level, error) {
	t := s.Type(typeId)

	filters, err := compileFilters(t, rawFilters)
	if err != nil {
		return nil, err
	}
	sorts, err := compileSorts(t, rawSorts)
	if err != nil {
		return nil, err
	}

	level := &Level{
		TypeId:         typeId,
		Name:           name,
		ReverseEdge:    reverseEdge,
		HasReverseEdge: hasReverseEdge,
		Virtual:        virtual,
		Recursive:      recursive,
		Filters:        filters,
		Sorts:          sorts,
		Residual:       filters,
	}

	// skipIndex applies only to the root level when the query names a
	// fixed id: the root is then a direct lookup, not an index scan,
	// so no covering index is required (spec §4.4 "or the single id").
	if !skipIndex {
		req := index.Request{Type: typeId, Filters: filters, Sort: sorts}
		if hasReverseEdge {
			req.EdgeEquals = map[ids.EdgeId]ids.NodeId{reverseEdge: ids.NodeId(0)}
		}
		plan, ok := sel.Select(req)
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q: no index covers this level", t.Name)}
		}
		if len(sorts) > 0 && !plan.SortSatisfied {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q: no index satisfies the requested sort order", t.Name)}
		}
		level.Plan = plan
		level.Residual = plan.Residual(filters)
	}

	for _, e := range rawEdges {
		edgeId, ok := t.EdgeByName(e.Name)
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q: unknown edge %q", t.Name, e.Name)}
		}
		edgeDef := t.Edge(edgeId)
		child, err := compileLevel(s, sel, edgeDef.TargetType, e.Name, edgeDef.ReverseId, true, e.Virtual, e.Recursive, false, e.Filters, e.Sorts, e.Edges)
		if err != nil {
			return nil, err
		}
		child.EdgeFromParent = edgeId
		level.Children = append(level.Children, child)
	}
	if recursive {
		level.Children = append(level.Children, level)
	}
	return level, nil
}

func compileFilters(t *schema.Type, raw []queryast.FilterDef) ([]queryfilter.Filter, error) {
	out := make([]queryfilter.Filter, 0, len(raw))
	for _, f := range raw {
		propId, ok := t.PropertyByName(f.Field)
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q: unknown filter field %q", t.Name, f.Field)}
		}
		op, ok := queryfilter.ParseOp(f.Op)
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q: unknown filter op %q", t.Name, f.Op)}
		}
		v, err := convertValue(f.Value, t.Property(propId).Kind)
		if err != nil {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q field %q: %v", t.Name, f.Field, err)}
		}
		out = append(out, queryfilter.Filter{Property: propId, Op: op, Value: v})
	}
	return out, nil
}

func compileSorts(t *schema.Type, raw []queryast.SortDef) ([]index.SortField, error) {
	out := make([]index.SortField, 0, len(raw))
	for _, sd := range raw {
		propId, ok := t.PropertyByName(sd.Field)
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("type %q: unknown sort field %q", t.Name, sd.Field)}
		}
		out = append(out, index.SortField{Property: propId, Desc: sd.Direction == "desc"})
	}
	return out, nil
}

func convertValue(raw interface{}, kind ids.Kind) (ids.Value, error) {
	if raw == nil {
		return ids.Null(), nil
	}
	switch kind {
	case ids.KindString:
		s, ok := raw.(string)
		if !ok {
			return ids.Value{}, fmt.Errorf("expected a string value")
		}
		return ids.StringValue(s), nil
	case ids.KindInt:
		f, ok := raw.(float64)
		if !ok {
			return ids.Value{}, fmt.Errorf("expected an int value")
		}
		return ids.IntValue(int64(f)), nil
	case ids.KindNumber:
		f, ok := raw.(float64)
		if !ok {
			return ids.Value{}, fmt.Errorf("expected a number value")
		}
		return ids.NumberValue(f), nil
	case ids.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return ids.Value{}, fmt.Errorf("expected a bool value")
		}
		return ids.BoolValue(b), nil
	default:
		return ids.Null(), nil
	}
}
